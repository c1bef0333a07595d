// tubecat connects a local terminal to a remote peer or a spawned
// process, netcat style, using the tubes library.
//
//	tubecat host:port            connect and go interactive
//	tubecat -l :4444             listen, accept one peer, go interactive
//	tubecat -e /bin/sh           spawn a process and talk to it
//	tubecat -e /bin/sh -tty      same, on a pseudo-terminal
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/ankouros/tubes"
)

var (
	listenAddr = flag.String("l", "", "listen on this address instead of connecting")
	execProg   = flag.String("e", "", "spawn this program instead of connecting")
	useTTY     = flag.Bool("tty", false, "run the spawned program on a pseudo-terminal")
	timeout    = flag.Duration("timeout", 0, "default receive timeout (0 = none)")
	verbose    = flag.Bool("v", false, "hex-dump traffic to stderr")
)

func main() {
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		logger = l
		defer logger.Sync()
	}

	opts := []tubes.Option{tubes.WithLogger(logger)}
	if *timeout > 0 {
		opts = append(opts, tubes.WithTimeout(*timeout))
	}

	ctx := context.Background()
	t, err := open(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	if err := t.Interactive(ctx); err != nil {
		log.Fatal(err)
	}
}

func open(ctx context.Context, opts []tubes.Option) (*tubes.Tube, error) {
	switch {
	case *execProg != "":
		cmd := exec.CommandContext(ctx, *execProg, flag.Args()...)
		if *useTTY {
			return tubes.CommandTTY(cmd, opts...)
		}
		return tubes.Command(cmd, opts...)

	case *listenAddr != "":
		l, err := tubes.Listen(*listenAddr)
		if err != nil {
			return nil, err
		}
		defer l.Close()
		fmt.Fprintf(os.Stderr, "listening on %s\n", l.Addr())
		return l.Accept(opts...)

	case flag.NArg() == 1:
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return tubes.Remote(dialCtx, flag.Arg(0), opts...)

	default:
		return nil, fmt.Errorf("usage: tubecat [-l addr | -e prog [args...] | host:port]")
	}
}
