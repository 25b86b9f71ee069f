package valuation

import (
	"bytes"
	"testing"

	"github.com/openfolio/folio/internal/models"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderValuationChart_ProducesPNG(t *testing.T) {
	points := []models.ValuationPoint{
		{Date: day("2024-01-01"), MarketValue: 1000, Invested: 1000},
		{Date: day("2024-01-02"), MarketValue: 1020, Invested: 1000},
		{Date: day("2024-01-03"), MarketValue: 1040, Invested: 1000},
	}

	png, err := RenderValuationChart(points)
	if err != nil {
		t.Fatalf("RenderValuationChart: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("output does not start with PNG magic bytes")
	}
}

func TestRenderValuationChart_TooFewPoints(t *testing.T) {
	if _, err := RenderValuationChart([]models.ValuationPoint{{Date: day("2024-01-01")}}); err == nil {
		t.Error("expected an error for a single data point")
	}
}
