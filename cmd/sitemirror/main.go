package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/andrewyi/sitemirror/src/server"
)

func main() {

	app := cli.NewApp()

	app.Name = "sitemirror"
	app.Version = "0.1.0"
	app.Usage = "mirror a website to a local directory"
	app.ArgsUsage = "<root-url> [destination]"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "配置文件，可选",
		},
		cli.IntFlag{
			Name:  "workers,w",
			Usage: "并发worker数量",
			Value: 4,
		},
		cli.IntFlag{
			Name:  "max-depth",
			Usage: "最大遍历深度，0表示不限制",
		},
		cli.IntFlag{
			Name:  "max-pages",
			Usage: "最大页面数量，0表示不限制",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "单次请求超时",
		},
		cli.BoolFlag{
			Name:  "convert-links",
			Usage: "将内部链接改写为本地相对路径",
		},
		cli.StringFlag{
			Name:  "state-file",
			Usage: "将每个链接的状态写入此yaml文件",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "日志级别(debug|info|warn|error)",
		},
	}

	s := server.NewServer()
	app.Action = s.Start

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
