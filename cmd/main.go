package main

import cmd "github.com/kerbaras/towebp/cmd/towebp"

func main() {
	cmd.Execute()
}
