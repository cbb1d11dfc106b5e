package main

import "github.com/garyjia/expensewise/internal/cli"

func main() {
	cli.Execute()
}
