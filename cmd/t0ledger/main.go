package main

import "github.com/qstrat/t0ledger/internal/cli"

func main() {
	cli.Execute()
}
