package main

import "taskgrid.com/taskgrid/cmd"

func main() {
	cmd.Execute()
}
