// Command coordinator is rank 0: it generates the inputs, times the
// sequential and row-block products, verifies the result and writes the
// report.
//
//	coordinator [-config cluster.json] [-transport local|rpc|grpc|mpi] [-np 4] [m n q]
package main

import (
	"os"

	"distributed-matmul/node"
	"distributed-matmul/shared"
)

func main() {
	os.Exit(node.Main(shared.RoleCoordinator, os.Args[1:]))
}
