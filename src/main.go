package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jinjor/singing-bowls/src/audio"
	"golang.org/x/sync/errgroup"
)

var (
	tonesPath  = flag.String("tones", "", "tone table JSON file (overrides -table)")
	tableName  = flag.String("table", "bowls", "built-in tone table: bowls or chakras")
	sockPath   = flag.String("sock", "/tmp/singing-bowls.sock", "unix socket the UI connects to")
	keys       = flag.Bool("keys", false, "read single key presses from the terminal instead of the socket")
	volume     = flag.Float64("volume", 0.7, "master volume 0..1")
	paramsPath = flag.String("params", "", "engine parameters JSON file")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	if err := run(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

// run owns the engine, so every return path closes it.
func run() error {
	table, err := loadTable()
	if err != nil {
		return err
	}
	var opts []audio.Option
	if *paramsPath != "" {
		data, err := os.ReadFile(*paramsPath)
		if err != nil {
			return err
		}
		opts = append(opts, audio.WithParamsJSON(data))
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine := audio.NewEngine(table, opts...)
	defer engine.Close()
	if isFlagSet("volume") || *paramsPath == "" {
		engine.SetMasterVolume(*volume)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if *keys {
			return runKeys(ctx, engine)
		}
		return withIPCConnection(ctx, func(conn net.Conn) error {
			ctx, disconnect := context.WithCancel(ctx)
			defer disconnect()
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer disconnect()
				return receiveCommands(ctx, conn, engine.CommandCh)
			})
			g.Go(func() error {
				return sendReports(ctx, conn, engine)
			})
			return g.Wait()
		})
	})
	return g.Wait()
}

func loadTable() (audio.ToneTable, error) {
	if *tonesPath != "" {
		return audio.LoadToneTable(*tonesPath)
	}
	return audio.BuiltinToneTable(*tableName)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func withIPCConnection(ctx context.Context, f func(net.Conn) error) error {
	os.Remove(*sockPath)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", *sockPath)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		err := listener.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(*sockPath)
	}()
	stopAccept := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stopAccept()
	log.Printf("start listening on %s...\n", *sockPath)
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		err := conn.Close()
		if err != nil {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	// unblocks the reader on shutdown
	stopRead := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stopRead()
	return f(conn)
}

func receiveCommands(ctx context.Context, conn net.Conn, commandCh chan<- []string) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF || ctx.Err() != nil {
			break loop
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		if err != nil {
			log.Printf("error: invalid command %q: %v\n", string(line), err)
		} else {
			commandCh <- command
			log.Printf("received: %s\n", string(line))
		}
		line = []byte{}
	}
	log.Println("receiveCommands() ended.")
	return nil
}

func parseCommand(line string) ([]string, error) {
	lineStr := strings.Split(line, " ")
	for i, item := range lineStr {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		lineStr[i] = escaped
	}
	return lineStr, nil
}

func sendReports(ctx context.Context, w io.Writer, engine *audio.Engine) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	// the UI starts with a full picture
	engine.Changes.Add(audio.ChangeActive)
	engine.Changes.Add(audio.ChangeSequencing)
	engine.Changes.Add(audio.ChangeVolume)
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			for _, report := range reports(engine) {
				if _, err := io.WriteString(w, report+"\n"); err != nil {
					if ctx.Err() != nil {
						break loop
					}
					return err
				}
			}
		}
	}
	log.Println("sendReports() ended.")
	return nil
}

func reports(engine *audio.Engine) []string {
	var lines []string
	if engine.Changes.Take(audio.ChangeActive) {
		lines = append(lines, strings.Join(append([]string{"active"}, engine.Active()...), " "))
	}
	if engine.Changes.Take(audio.ChangeSequencing) {
		lines = append(lines, fmt.Sprintf("sequencing %t", engine.IsSequencing()))
	}
	if engine.Changes.Take(audio.ChangeVolume) {
		lines = append(lines, "volume "+strconv.FormatFloat(engine.MasterVolume(), 'f', 6, 64))
	}
	return lines
}
