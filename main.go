package main

import "github.com/andresmejia3/livecheck/cmd"

func main() {
	cmd.Execute()
}
