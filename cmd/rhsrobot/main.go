// Package main runs a simulated robot.
package main

import (
	"go.viam.com/utils"

	"go.viam.com/rhsrobot/logging"
	"go.viam.com/rhsrobot/server"
)

var logger = logging.NewLogger("rhsrobot")

func main() {
	utils.ContextualMain(server.RunServer, logger)
}
