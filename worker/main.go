// Command worker runs ranks 1..p-1. It waits for its block of A and a
// copy of B, multiplies them and returns its partial product.
//
//	worker -rank r [-config cluster.json] [m n q]
package main

import (
	"os"

	"distributed-matmul/node"
	"distributed-matmul/shared"
)

func main() {
	os.Exit(node.Main(shared.RoleWorker, os.Args[1:]))
}
