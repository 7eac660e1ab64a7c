package main

import "github.com/frahmantamala/todolist/cmd"

func main() {
	cmd.Execute()
}
