package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"loothound/internal/game"
)

// Defaults applied when the configuration file leaves a field out.
const (
	DefaultDogSpeed       = 1.0
	DefaultBagCapacity    = 3
	DefaultRetirementTime = 60 * time.Second
)

type roadJSON struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
}

type buildingJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeJSON struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type mapJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DogSpeed    *float64        `json:"dogSpeed"`
	BagCapacity *int            `json:"bagCapacity"`
	Roads       []roadJSON      `json:"roads"`
	Buildings   []buildingJSON  `json:"buildings"`
	Offices     []officeJSON    `json:"offices"`
	LootTypes   []game.LootType `json:"lootTypes"`
}

type lootGenJSON struct {
	Period      float64 `json:"period"`
	Probability float64 `json:"probability"`
}

type gameJSON struct {
	Maps               []mapJSON    `json:"maps"`
	DefaultDogSpeed    *float64     `json:"defaultDogSpeed"`
	DefaultBagCapacity *int         `json:"defaultBagCapacity"`
	LootGenerator      *lootGenJSON `json:"lootGeneratorConfig"`
	DogRetirementTime  *float64     `json:"dogRetirementTime"`
}

// LoadGame reads the world description from the JSON file at path.
// Durations in the file are seconds; randomizeSpawn applies to every
// map.
func LoadGame(path string, randomizeSpawn bool) (*game.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game config: %w", err)
	}

	var doc gameJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse game config: %w", err)
	}
	if len(doc.Maps) == 0 {
		return nil, fmt.Errorf("game config %q declares no maps", path)
	}

	defaultSpeed := DefaultDogSpeed
	if doc.DefaultDogSpeed != nil {
		defaultSpeed = *doc.DefaultDogSpeed
	}
	defaultBag := DefaultBagCapacity
	if doc.DefaultBagCapacity != nil {
		defaultBag = *doc.DefaultBagCapacity
	}

	cfg := game.Config{
		LootPeriod:      5 * time.Second,
		LootProbability: 0.5,
		RetirementTime:  DefaultRetirementTime,
	}
	if doc.LootGenerator != nil {
		cfg.LootPeriod = secondsToDuration(doc.LootGenerator.Period)
		cfg.LootProbability = doc.LootGenerator.Probability
	}
	if doc.DogRetirementTime != nil {
		cfg.RetirementTime = secondsToDuration(*doc.DogRetirementTime)
	}

	catalog := game.NewLootCatalog()
	g := game.New(cfg, catalog)

	for _, mj := range doc.Maps {
		m, err := buildMap(mj, defaultSpeed, defaultBag, randomizeSpawn)
		if err != nil {
			return nil, err
		}
		catalog.SetTypes(mj.ID, mj.LootTypes)
		if err := g.AddMap(m); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func buildMap(mj mapJSON, defaultSpeed float64, defaultBag int, randomizeSpawn bool) (*game.Map, error) {
	if mj.ID == "" {
		return nil, fmt.Errorf("map without id")
	}
	if len(mj.Roads) == 0 {
		return nil, fmt.Errorf("map %q has no roads", mj.ID)
	}

	speed := defaultSpeed
	if mj.DogSpeed != nil {
		speed = *mj.DogSpeed
	}
	bag := defaultBag
	if mj.BagCapacity != nil {
		bag = *mj.BagCapacity
	}

	m := game.NewMap(mj.ID, mj.Name, speed, randomizeSpawn, len(mj.LootTypes), bag)

	for i, rj := range mj.Roads {
		switch {
		case rj.X1 != nil:
			m.AddRoad(game.NewHorizontalRoad(game.Point{X: rj.X0, Y: rj.Y0}, *rj.X1))
		case rj.Y1 != nil:
			m.AddRoad(game.NewVerticalRoad(game.Point{X: rj.X0, Y: rj.Y0}, *rj.Y1))
		default:
			return nil, fmt.Errorf("map %q road %d has neither x1 nor y1", mj.ID, i)
		}
	}

	for _, bj := range mj.Buildings {
		m.AddBuilding(game.Building{Bounds: game.Rectangle{
			Position: game.Point{X: bj.X, Y: bj.Y},
			Size:     game.Size{Width: bj.W, Height: bj.H},
		}})
	}

	for _, oj := range mj.Offices {
		office := game.Office{
			ID:       oj.ID,
			Position: game.Point{X: oj.X, Y: oj.Y},
			Offset:   game.Offset{DX: oj.OffsetX, DY: oj.OffsetY},
		}
		if err := m.AddOffice(office); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
