package main

import "github.com/edgeflare/pgrag/cmd/pgrag"

func main() {
	pgrag.Main()
}
