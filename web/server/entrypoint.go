// Package server implements the entry point for running the grasp planner gRPC server.
package server

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/multierr"
	genericpb "go.viam.com/api/service/generic/v1"
	"go.viam.com/utils"
	"google.golang.org/grpc"

	"go.viam.com/graspplanner/config"
	"go.viam.com/graspplanner/logging"
	"go.viam.com/graspplanner/services/grasping"
	"go.viam.com/graspplanner/services/grasping/builtin"
)

// Version is set at build time.
var Version = "dev"

const defaultPort = 8080

// Arguments for the command.
type Arguments struct {
	ConfigFile string            `flag:"0,required,usage=planner config file"`
	Host       string            `flag:"host,usage=interface to listen on (default localhost)"`
	Port       utils.NetPortFlag `flag:"port,usage=port to listen on (default 8080)"`
	Debug      bool              `flag:"debug"`
	Version    bool              `flag:"version,usage=print version"`
}

// RunServer reads the planner config, connects the planner to its collaborators and serves it
// as a generic service until ctx is done.
func RunServer(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	logger.Infof("grasp planner version: %s", Version)
	if argsParsed.Version {
		return nil
	}
	if argsParsed.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if argsParsed.Port == 0 {
		argsParsed.Port = utils.NetPortFlag(defaultPort)
	}
	if argsParsed.Host == "" {
		argsParsed.Host = "localhost"
	}

	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	planner, err := builtin.NewFromConfig(ctx, cfg, logger.Sublogger("planner"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, planner.Close(context.Background()))
	}()

	listener, err := net.Listen("tcp", net.JoinHostPort(argsParsed.Host, fmt.Sprint(int(argsParsed.Port))))
	if err != nil {
		return err
	}
	err = Serve(ctx, listener, cfg.Name, planner, logger)
	if err != nil {
		logger.Errorw("error serving planner", "error", err)
	}
	return err
}

// Serve serves svc under name on listener until ctx is done.
func Serve(ctx context.Context, listener net.Listener, name string, svc grasping.Service, logger logging.Logger) error {
	server := grpc.NewServer()
	genericpb.RegisterGenericServiceServer(server, grasping.NewRPCServiceServer(name, svc, logger))

	errCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		errCh <- server.Serve(listener)
	})
	logger.Infow("serving grasp planner", "name", name, "address", listener.Addr().String())

	select {
	case <-ctx.Done():
		server.Stop()
		return <-errCh
	case err := <-errCh:
		return err
	}
}
