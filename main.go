package main

import "github.com/Millstreamu/StockTrak/cmd"

func main() {
	cmd.Execute()
}
