/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/aquagest/apiserver/cmd"

func main() {
	cmd.Execute()
}
