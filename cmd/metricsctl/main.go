package main

import "taiga-metrics-service/internal/cli"

func main() {
	cli.Execute()
}
