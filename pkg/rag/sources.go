package rag

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SampleSources returns five Seoul landmark documents.
func SampleSources() []Source {
	return []Source{
		{
			Title:   "Gyeongbokgung Palace",
			Content: "Gyeongbokgung is the largest of the Five Grand Palaces built by the Joseon dynasty in 1395. Visitors can watch the royal guard changing ceremony at Gwanghwamun gate and tour Geunjeongjeon, the throne hall.",
		},
		{
			Title:   "N Seoul Tower",
			Content: "N Seoul Tower stands on the summit of Namsan Mountain in central Seoul. Its observation deck offers panoramic views of the city, and its terrace is famous for thousands of love locks.",
		},
		{
			Title:   "Bukchon Hanok Village",
			Content: "Bukchon Hanok Village preserves hundreds of traditional Korean houses called hanok between Gyeongbokgung and Changdeokgung palaces. Many hanok now host tea houses, guest houses and craft workshops.",
		},
		{
			Title:   "Myeongdong",
			Content: "Myeongdong is one of Seoul's busiest shopping districts, known for cosmetics stores, fashion boutiques and evening street food stalls. Myeongdong Cathedral, built in 1898, stands at the top of the hill.",
		},
		{
			Title:   "Lotte World Tower",
			Content: "Lotte World Tower in Jamsil is a 123-floor skyscraper and the tallest building in South Korea. The Seoul Sky observatory near the top has a glass floor 500 meters above the ground.",
		},
	}
}

// ParseSources decodes sources from YAML or JSON. Both a top-level list and a
// mapping with a "documents" list are accepted.
func ParseSources(data []byte) ([]Source, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, nil
	}

	var sources []Source
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&sources); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
	case yaml.MappingNode:
		var wrapper struct {
			Documents []Source `yaml:"documents"`
		}
		if err := root.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
		sources = wrapper.Documents
	default:
		return nil, fmt.Errorf("parse sources: expected a list or a mapping with a documents list")
	}

	return sources, nil
}

// LoadSources reads sources from a YAML or JSON file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return ParseSources(data)
}
