package generator

import (
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
)

// Structure defaults.
const (
	DefaultDischargeCoefficient   = 1.0
	DefaultContractionCoefficient = 0.63
	secondsPerHour                = 3600.0
)

// connection builds Verbinding rows of the given kind.
func connection(kind feature.ConnectionKind) Constructor {
	return func(acc element.Accessor) Generator {
		return Func(func(el *element.Element) (feature.Feature, error) {
			name, ok := requireID(acc, el, "UNIQUE_ID")
			if !ok {
				return nil, nil
			}
			sc := &feature.SewerConnection{
				Location:           location(el),
				Name:               name,
				Kind:               kind,
				Origin:             feature.OriginConnection,
				TypeCode:           acc.String(el, "PIPE_TYPE", ""),
				PipeID:             acc.String(el, "PIPE_ID", ""),
				SourceID:           acc.String(el, "SOURCE_NODE_ID", ""),
				TargetID:           acc.String(el, "TARGET_NODE_ID", ""),
				LevelSource:        acc.Float(el, "LEVEL_START", 0),
				LevelTarget:        acc.Float(el, "LEVEL_END", 0),
				Length:             acc.Float(el, "LENGTH", 0),
				WaterType:          element.Enum(acc, el, "WATER_TYPE", feature.WaterTypeCodes, feature.WaterTypeNone),
				FlowDirection:      element.Enum(acc, el, "FLOW_DIRECTION", feature.FlowDirectionCodes, feature.FlowOpen),
				CrossSectionID:     acc.String(el, "CROSS_SECTION_ID", ""),
				EntranceLossSource: acc.Float(el, "ENTRANCE_LOSS_START", 0),
				ExitLossSource:     acc.Float(el, "EXIT_LOSS_START", 0),
				EntranceLossTarget: acc.Float(el, "ENTRANCE_LOSS_END", 0),
				ExitLossTarget:     acc.Float(el, "EXIT_LOSS_END", 0),
			}
			// Parameters of pumps, weirs and orifices come from the matching
			// Kunstwerk row; until then they hold defaults.
			switch kind {
			case feature.KindPump:
				sc.Pump = &feature.Pump{}
			case feature.KindWeir:
				sc.Weir = &feature.Weir{DischargeCoefficient: DefaultDischargeCoefficient}
			case feature.KindOrifice:
				sc.Orifice = &feature.Orifice{ContractionCoefficient: DefaultContractionCoefficient}
			}
			return sc, nil
		})
	}
}

// structure builds Kunstwerk rows of the given kind. The result carries no
// endpoints; assembly merges it into the connection of the same name.
func structure(kind feature.ConnectionKind) Constructor {
	return func(acc element.Accessor) Generator {
		return Func(func(el *element.Element) (feature.Feature, error) {
			name, ok := requireID(acc, el, "UNIQUE_ID")
			if !ok {
				return nil, nil
			}
			sc := &feature.SewerConnection{
				Location: location(el),
				Name:     name,
				Kind:     kind,
				Origin:   feature.OriginStructure,
				TypeCode: acc.String(el, "STRUCTURE_TYPE", ""),
			}
			switch kind {
			case feature.KindPump:
				sc.Pump = pumpParameters(acc, el)
			case feature.KindWeir:
				sc.Weir = &feature.Weir{
					CrestWidth:           acc.Float(el, "CREST_WIDTH", 0),
					CrestLevel:           acc.Float(el, "CREST_LEVEL", 0),
					DischargeCoefficient: acc.Float(el, "DISCHARGE_COEFFICIENT", DefaultDischargeCoefficient),
				}
			case feature.KindOrifice:
				maxQ := acc.Float(el, "MAX_DISCHARGE", 0)
				sc.Orifice = &feature.Orifice{
					CrestLevel:             acc.Float(el, "BOTTOM_LEVEL_PROFILE", 0),
					ContractionCoefficient: acc.Float(el, "CONTRACTION_COEFFICIENT", DefaultContractionCoefficient),
					MaxDischarge:           maxQ,
					UseMaxDischarge:        maxQ > 0,
				}
			}
			return sc, nil
		})
	}
}

// pumpParameters converts the capacity from m³/h to m³/s.
func pumpParameters(acc element.Accessor, el *element.Element) *feature.Pump {
	return &feature.Pump{
		Capacity:           acc.Float(el, "PUMP_CAPACITY", 0) / secondsPerHour,
		StartLevelSuction:  acc.Float(el, "START_LEVEL_SUCTION", 0),
		StopLevelSuction:   acc.Float(el, "STOP_LEVEL_SUCTION", 0),
		StartLevelDelivery: acc.Float(el, "START_LEVEL_DELIVERY", 0),
		StopLevelDelivery:  acc.Float(el, "STOP_LEVEL_DELIVERY", 0),
	}
}
