package main

import "github.com/d-kuro/useraccount/cmd/useraccount/cmd"

func main() {
	cmd.Execute()
}
