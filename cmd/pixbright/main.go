package main

import (
	"os"

	"github.com/cshum/pixbright/config"
	"github.com/cshum/pixbright/config/awsconfig"
	"github.com/cshum/pixbright/config/gcloudconfig"
)

func main() {
	var server = config.CreateServer(
		os.Args[1:],
		awsconfig.WithAWS,
		gcloudconfig.WithGCloud,
	)
	if server != nil {
		server.Run()
	}
}
