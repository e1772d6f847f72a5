package main

import (
	"github.com/dkovalev/touchcal/cmd/touchcal"
	"github.com/dkovalev/touchcal/logging"
)

func main() {
	logging.Setup(false)
	touchcal.Execute()
}
