package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const systemInfoPath = "/endkunde/api/systeminfo"

type systemInfo struct {
	PlantNumber int    `json:"anlageNummer"`
	Master      bool   `json:"master"`
	ControlUnit string `json:"steuereinheitnummer"`
}

func plantQuery(plant int) url.Values {
	return url.Values{"anlageNummer": {strconv.Itoa(plant)}}
}

// ensurePlant returns the configured plant number, or finds the master
// plant by probing plant numbers 0,1,2... until one has no system info.
// Non-master plants seen on the way are recorded as slaves and never polled.
func (c *Client) ensurePlant(ctx context.Context) (int, error) {
	c.mu.Lock()
	master := c.masterPlant
	c.mu.Unlock()
	if master != nil {
		return *master, nil
	}

	var (
		found  *int
		slaves []int
	)
	for n := 0; n < maxPlants; n++ {
		info := systemInfo{}
		err := c.withWebSession(ctx, func(ctx context.Context) error {
			return c.doWeb(ctx, http.MethodGet, systemInfoPath, plantQuery(n), nil, &info)
		})
		if errors.Is(err, ErrNoData) {
			break
		}
		if err != nil {
			return 0, err
		}
		if info.Master && found == nil {
			plant := n
			found = &plant
			continue
		}
		slaves = append(slaves, n)
	}
	if found == nil {
		return 0, ErrNoPlant
	}

	c.mu.Lock()
	c.masterPlant = found
	c.slavePlants = slaves
	c.mu.Unlock()
	c.logger.Info("detected master plant", zap.Int("plant", *found), zap.Ints("slaves", slaves))
	return *found, nil
}

// MasterPlant is the plant number every portal call uses.
func (c *Client) MasterPlant() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.masterPlant == nil {
		return 0, false
	}
	return *c.masterPlant, true
}

func (c *Client) SlavePlants() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.slavePlants...)
}
