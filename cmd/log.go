package cmd

import "github.com/op/go-logging"

var log = logging.MustGetLogger("cmd")
