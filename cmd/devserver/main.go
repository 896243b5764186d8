// Package main provides a single-process development realm: an in-memory
// store, the world clock, and a console that resolves actions typed on stdin.
//
// Each input line is "<player> <ACTION> [json payload]", for example:
//
//	alice CHOP_WOOD
//	alice BUY {"resource":"wood","quantity":2}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fiefdom/internal/config"
	"github.com/cory-johannsen/fiefdom/internal/gameserver"
	"github.com/cory-johannsen/fiefdom/internal/observability"
	"github.com/cory-johannsen/fiefdom/internal/storage/memory"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	room := flag.String("room", "", "room to act in; defaults to the first configured room")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg.Engine.Store = "memory"
	if *room == "" {
		*room = "dev"
		if len(cfg.World.Rooms) > 0 {
			*room = cfg.World.Rooms[0]
		}
	}
	if len(cfg.World.Rooms) == 0 {
		cfg.World.Rooms = []string{*room}
	}

	logger, err := observability.NewLogger(cfg.Logging, "devserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	realm, err := gameserver.NewRealm(ctx, cfg, memory.New(), logger)
	if err != nil {
		logger.Fatal("building realm", zap.Error(err))
	}
	defer realm.Close()
	if realm.Clock != nil {
		stop := realm.Clock.Start(ctx)
		defer stop()
	}

	fmt.Fprintf(os.Stdout, "fiefdom dev realm %q ready; type \"<player> <ACTION> [json]\"\n", *room)
	if err := console(ctx, os.Stdin, os.Stdout, realm, *room, cfg.Engine.ResolveTimeout); err != nil {
		logger.Error("console", zap.Error(err))
	}
}

func console(ctx context.Context, in io.Reader, out io.Writer, realm *gameserver.Realm, room string, timeout time.Duration) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		player, act, err := parseLine(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		rctx, cancel := context.WithTimeout(ctx, timeout)
		outcome := realm.Engine.Resolve(rctx, room, player, act)
		cancel()
		if err := enc.Encode(outcome); err != nil {
			return err
		}
	}
	return sc.Err()
}

func parseLine(line string) (string, any, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return "", nil, fmt.Errorf("usage: <player> <ACTION> [json]")
	}
	player, kind := fields[0], strings.ToUpper(fields[1])
	if len(fields) == 2 {
		return player, kind, nil
	}
	payload := map[string]any{}
	if err := json.Unmarshal([]byte(fields[2]), &payload); err != nil {
		return "", nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	payload["type"] = kind
	return player, payload, nil
}
