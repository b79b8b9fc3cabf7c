// Package main runs the grasp planner server.
package main

import (
	"go.viam.com/utils"

	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/web/server"
)

var logger = logging.NewLogger("graspplanner")

func main() {
	utils.ContextualMain(server.RunServer, logger)
}
