package generator

import (
	"fmt"
	"math"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
)

// hourlyTolerance is the allowed deviation of the hourly percentages from 100.
const hourlyTolerance = 0.01

func newSurface(acc element.Accessor) Generator {
	return Func(func(el *element.Element) (feature.Feature, error) {
		id, ok := requireID(acc, el, "UNIQUE_ID")
		if !ok {
			return nil, nil
		}
		if _, ok := requireID(acc, el, "SURFACE_ID"); !ok {
			return nil, nil
		}
		return &feature.Surface{
			Location:       location(el),
			CatchmentID:    id,
			MeteoStationID: acc.String(el, "METEO_STATION_ID", ""),
			SurfaceType:    element.Enum(acc, el, "SURFACE_ID", feature.SurfaceTypeCodes, feature.SurfaceClosedPavedWithSlope),
			Area:           acc.Float(el, "SURFACE_AREA", 0),
		}, nil
	})
}

func newRunoff(acc element.Accessor) Generator {
	return Func(func(el *element.Element) (feature.Feature, error) {
		code, ok := requireID(acc, el, "SURFACE_ID")
		if !ok {
			return nil, nil
		}
		st, known := feature.SurfaceTypeCodes.Lookup(code)
		if !known {
			warn(acc, el, "SURFACE_ID", "Runoff definition for unknown surface type '%s' is skipped", code)
			return nil, nil
		}
		return &feature.RunoffDefinition{
			Location:              location(el),
			SurfaceType:           st,
			SurfaceStorage:        acc.Float(el, "SURFACE_STORAGE", 0),
			InfiltrationMax:       acc.Float(el, "INFILTRATION_CAPACITY_MAX", 0),
			InfiltrationMin:       acc.Float(el, "INFILTRATION_CAPACITY_MIN", 0),
			InfiltrationReduction: acc.Float(el, "INFILTRATION_CAPACITY_REDUCTION", 0),
			InfiltrationRecovery:  acc.Float(el, "INFILTRATION_CAPACITY_RECOVERY", 0),
			RunoffDelay:           acc.Float(el, "RUNOFF_DELAY", 0),
			RunoffLength:          acc.Float(el, "RUNOFF_LENGTH", 0),
			RunoffSlope:           acc.Float(el, "RUNOFF_SLOPE", 0),
		}, nil
	})
}

func newDistribution(acc element.Accessor) Generator {
	return Func(func(el *element.Element) (feature.Feature, error) {
		name, ok := requireID(acc, el, "DISTRIBUTION_ID")
		if !ok {
			return nil, nil
		}
		d := &feature.DryWeatherFlowDefinition{
			Location:         location(el),
			Name:             name,
			DistributionType: element.Enum(acc, el, "DISTRIBUTION_TYPE", feature.DistributionTypeCodes, feature.DistributionDryWeather),
			DailyVolume:      acc.Float(el, "DAILY_VOLUME", 0),
		}
		var sum float64
		for h := range d.HourlyPercentages {
			d.HourlyPercentages[h] = acc.Float(el, fmt.Sprintf("HOURLY_PERCENTAGE_%02d", h), 0)
			sum += d.HourlyPercentages[h]
		}
		if math.Abs(sum-100) > hourlyTolerance {
			warn(acc, el, "HOURLY_PERCENTAGE_00",
				"Hourly percentages of distribution '%s' sum to %.2f instead of 100", name, sum)
		}
		return d, nil
	})
}

func newDischarge(acc element.Accessor) Generator {
	return Func(func(el *element.Element) (feature.Feature, error) {
		id, ok := requireID(acc, el, "UNIQUE_ID")
		if !ok {
			return nil, nil
		}
		d := &feature.Discharge{
			Location:       location(el),
			CatchmentID:    id,
			Type:           element.Enum(acc, el, "DISCHARGE_TYPE", feature.DischargeTypeCodes, feature.DischargeDryWeather),
			PollutionUnits: acc.Int(el, "POLLUTION_UNITS", 0),
			SurfaceArea:    acc.Float(el, "SURFACE_AREA", 0),
		}
		d.DistributionID = acc.String(el, "DISTRIBUTION_ID", "")
		if d.DistributionID == "" && d.Type == feature.DischargeDryWeather {
			warn(acc, el, "DISTRIBUTION_ID",
				"Discharge '%s' has no distribution; '%s' is used", id, feature.DefaultDryWeatherFlow)
			d.DistributionID = feature.DefaultDryWeatherFlow
		}
		return d, nil
	})
}
