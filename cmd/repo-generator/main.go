package main

import "github.com/oshokin/repo-generator/cmd/repo-generator/cmd"

func main() {
	cmd.Execute()
}
