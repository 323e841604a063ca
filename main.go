package main

import "AviaxMusic/cmd"

func main() {
	cmd.Execute()
}
