package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/Agurato/kolnoa/internal/model"
)

type BeaconRecorder interface {
	Record(beacons []model.Beacon) error
}

type BeaconHandler struct {
	BeaconRecorder
}

func NewBeaconHandler(br BeaconRecorder) *BeaconHandler {
	return &BeaconHandler{
		BeaconRecorder: br,
	}
}

// POSTBeacons records web vitals sent by navigator.sendBeacon, one beacon or an array of them.
// The body is read as JSON whatever its content type, sendBeacon posts text/plain.
func (bh BeaconHandler) POSTBeacons(c *gin.Context) {
	var beacons []model.Beacon
	if err := c.ShouldBindBodyWith(&beacons, binding.JSON); err != nil {
		var beacon model.Beacon
		if err := c.ShouldBindBodyWith(&beacon, binding.JSON); err != nil {
			badRequest(c, "body must be a beacon or an array of beacons")
			return
		}
		beacons = []model.Beacon{beacon}
	}
	if err := bh.BeaconRecorder.Record(beacons); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(beacons)})
}
