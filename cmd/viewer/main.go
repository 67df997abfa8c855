package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/milk9111/companion/prefabs"
	"github.com/milk9111/companion/sim"
)

func main() {
	room := flag.String("room", "", "room name from rooms.yaml (overrides COMPANION_ROOM)")
	count := flag.Int("n", 0, "number of companions (overrides COMPANION_COUNT)")
	flag.Parse()

	cfg, err := sim.ParseEnv()
	if err != nil {
		log.Fatal(err)
	}
	if *room != "" {
		cfg.Room = *room
	}
	if *count > 0 {
		cfg.Companions = *count
	}
	logger := cfg.NewLogger()
	prefabs.SetDir(cfg.PrefabDir)

	runner, err := sim.New(sim.Options{
		Room:       cfg.Room,
		Companions: cfg.Companions,
		AutoInit:   cfg.AutoInit,
		Logger:     logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Watch {
		if err := sim.WatchPrefabs(ctx, runner, cfg.PrefabDir); err != nil && !errors.Is(err, sim.ErrNoPrefabDir) {
			log.Fatal(err)
		}
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("companion viewer")

	if err := ebiten.RunGame(newViewer(runner)); err != nil {
		log.Fatal(err)
	}
}
