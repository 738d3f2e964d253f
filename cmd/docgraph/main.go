// Package main is the entry point for docgraph.
package main

func main() {
	Execute()
}
