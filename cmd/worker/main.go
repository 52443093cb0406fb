package main

import (
	"log"
	"os"

	"github.com/urfave/cli"

	wrk "github.com/cocaine-cloud/worker-go/worker"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	app := cli.NewApp()
	app.Name = "worker"
	app.Usage = "runs an application's event handlers against the node daemon"
	app.Version = VERSION
	app.Flags = wrk.Flags()
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := wrk.ConfigFromCLI(c)
	if err != nil {
		return err
	}

	w, err := wrk.NewWorker(cfg)
	if err != nil {
		return err
	}

	w.OnFunc("ping", func(req wrk.Request, resp wrk.Response) {
		data, err := req.Read()
		if err != nil {
			resp.ErrorMsg(wrk.ErrorInvocationFailed, err.Error())
			return
		}
		resp.Write(data)
		resp.Close()
	})

	return w.Run()
}
