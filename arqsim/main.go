// Package main is the entry of the arqsim command.
package main

import "github.com/sarchlab/arqsim/arqsim/cmd"

func main() {
	cmd.Execute()
}
