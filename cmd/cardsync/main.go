package main

import "github.com/example/cardsync/cmd"

func main() {
	cmd.Execute()
}
