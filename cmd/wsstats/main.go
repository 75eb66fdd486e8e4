package main

import "github.com/dbsmedya/wsstats/cmd/wsstats/cmd"

func main() {
	cmd.Execute()
}
