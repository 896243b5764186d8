package action

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/fiefdom/internal/game/actor"
)

// Crop process constants.
const (
	ProcessCrop     = "crop"
	CropGrowTime    = 10 * time.Minute
	CropYield       = 5
	MaxActiveCrops  = 5
	DefaultLocation = "field"
)

type plantPayload struct {
	Location string `json:"location"`
}

func plantCrop(c *Context) error {
	var p plantPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Location == "" {
		p.Location = DefaultLocation
	}
	active := 0
	for _, pr := range c.Actor.Processes {
		if pr.Kind == ProcessCrop {
			active++
		}
	}
	if active >= MaxActiveCrops {
		return rejectf("You already tend %d crops", MaxActiveCrops)
	}
	ready := c.Now.Add(CropGrowTime)
	c.Actor.Processes = append(c.Actor.Processes, actor.Process{
		ID:       uuid.NewString(),
		Kind:     ProcessCrop,
		Location: p.Location,
		ReadyAt:  ready,
	})
	c.TrackXP(actor.Farming, 5)
	c.Result.Data["readyAt"] = ready
	return c.succeed("You plant a crop in the %s", p.Location)
}

// collectHarvest yields CropYield grain per ready crop and keeps the rest growing.
func collectHarvest(c *Context) error {
	kept := make([]actor.Process, 0, len(c.Actor.Processes))
	ready := 0
	for _, pr := range c.Actor.Processes {
		if pr.Kind == ProcessCrop && !c.Now.Before(pr.ReadyAt) {
			ready++
			continue
		}
		kept = append(kept, pr)
	}
	if ready == 0 {
		return rejectf("Nothing is ready to harvest")
	}
	c.Actor.Processes = kept
	c.Give(actor.Grain, ready*CropYield)
	c.TrackXP(actor.Farming, float64(ready)*GatherXP)
	return c.succeed("You bring in %d crops for %d grain", ready, ready*CropYield)
}
