package main

import "github.com/gagarinchain/accountability/cmd"

func main() {
	cmd.Execute()
}
