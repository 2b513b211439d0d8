// Sensorctl controls a running sampler over its control service.
//
// Usage: sensorctl [-address=http://127.0.0.1:8081] [-timeout=5s] [-grpc] <command> [args]
//
// Commands:
//
//	start               start sampling (no-op when already running)
//	stop                stop sampling and discard queued records
//	clear               delete the record log
//	last <kind>         latest reading of humidity_temp|HT, pressure|P or inertial|IMU
//	cat [max_bytes]     print the record log
//	rate <kind> [ms]    show or set the sampling period of a kind
//	status              workers, queue and periods
//	summary             one-line overview of every sensor
//	live                follow new records until interrupted
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/samoilenko/sensorlog/pkg/logging"
	sensorctlInfrastructure "github.com/samoilenko/sensorlog/sensorctl/infrastructure"
)

var errUsage = errors.New("usage")

func endWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
	flag.Usage()
	os.Exit(1)
}

func main() {
	ctx, finish := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer finish()

	rawAddress := flag.String("address", "http://127.0.0.1:8081", "address of the sampler control service")
	timeout := flag.Duration("timeout", 5*time.Second, "timeout of a single command (live is not limited)")
	useGRPC := flag.Bool("grpc", false, "use the gRPC protocol instead of Connect")
	flag.Parse()

	address, err := sensorctlInfrastructure.NewAddress(*rawAddress)
	if err != nil {
		endWithError(err)
	}
	if flag.NArg() == 0 {
		endWithError(fmt.Errorf("%w: command is required", errUsage))
	}

	logger := logging.NewZapLoggerFromEnv().Named("sensorctl")
	defer logger.Sync()

	var opts []connect.ClientOption
	if *useGRPC {
		opts = append(opts, connect.WithGRPC())
	}
	client := sensorctlInfrastructure.NewControlClient(sensorctlInfrastructure.NewH2CClient(), address, opts...)

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "live" {
		follower := sensorctlInfrastructure.NewLiveFollower(client, logger)
		_ = follower.Follow(ctx, func(line string) { fmt.Println(line) })
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := run(callCtx, client, cmd, args); err != nil {
		if errors.Is(err, errUsage) {
			endWithError(err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, client *sensorctlInfrastructure.ControlClient, cmd string, args []string) error {
	switch cmd {
	case "start":
		status, err := client.Start(ctx)
		if err != nil {
			return err
		}
		fmt.Println(sensorctlInfrastructure.FormatStatus(status))
	case "stop":
		discarded, err := client.Stop(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("stopped, %d queued records discarded\n", discarded)
	case "clear":
		if err := client.ClearLog(ctx); err != nil {
			return err
		}
		fmt.Println("log cleared")
	case "last":
		if len(args) != 1 {
			return fmt.Errorf("%w: last <kind>", errUsage)
		}
		r, err := client.GetLast(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(sensorctlInfrastructure.FormatReading(r))
	case "cat":
		var maxBytes int64
		if len(args) > 0 {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: cat [max_bytes]", errUsage)
			}
			maxBytes = n
		}
		data, err := client.ReadLog(ctx, maxBytes)
		if err != nil {
			return err
		}
		_, _ = os.Stdout.Write(data)
	case "rate":
		return rate(ctx, client, args)
	case "status":
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Println(sensorctlInfrastructure.FormatStatus(status))
	case "summary":
		line, err := client.Summary(ctx)
		if err != nil {
			return err
		}
		fmt.Println(line)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}

func rate(ctx context.Context, client *sensorctlInfrastructure.ControlClient, args []string) error {
	switch len(args) {
	case 1:
		// the server resolves tags like "P" to the canonical kind name
		r, err := client.GetLast(ctx, args[0])
		if err != nil {
			return err
		}
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		ms, ok := status.PeriodsMs[r.Kind]
		if !ok {
			return fmt.Errorf("no period reported for %s", r.Kind)
		}
		fmt.Printf("rate: %d ms\n", ms)
	case 2:
		ms, err := strconv.Atoi(args[1])
		if err != nil || ms <= 0 {
			return fmt.Errorf("%w: rate <kind> [ms]", errUsage)
		}
		if err := client.SetPeriod(ctx, args[0], time.Duration(ms)*time.Millisecond); err != nil {
			return err
		}
		fmt.Printf("rate set: %d ms\n", ms)
	default:
		return fmt.Errorf("%w: rate <kind> [ms]", errUsage)
	}
	return nil
}
