package entities

// MethodParams is the tagged union of method-specific measurement values.
// The three raw numeric columns of a diagnostic record mean different
// things depending on the method; decoding them through this union keeps
// any param-aware scoring exhaustive over method codes.
type MethodParams interface {
	ParamsMethod() Method
}

// FluxLeakageParams carries in-line magnetic inspection values (MFL, TFI)
type FluxLeakageParams struct {
	Method_         Method   `json:"-"`
	SignalAmplitude *float64 `json:"signal_amplitude,omitempty"` // mV
	DefectLengthMM  *float64 `json:"defect_length_mm,omitempty"`
	DefectDepthPct  *float64 `json:"defect_depth_pct,omitempty"` // % of wall
}

func (p FluxLeakageParams) ParamsMethod() Method { return p.Method_ }

// ThicknessParams carries ultrasonic wall measurement values (UZT, UZK)
type ThicknessParams struct {
	Method_       Method   `json:"-"`
	MinWallMM     *float64 `json:"min_wall_mm,omitempty"`
	NominalWallMM *float64 `json:"nominal_wall_mm,omitempty"`
	LossPct       *float64 `json:"loss_pct,omitempty"`
}

func (p ThicknessParams) ParamsMethod() Method { return p.Method_ }

// RadiographicParams carries film-based inspection values (RGK)
type RadiographicParams struct {
	SensitivityMM *float64 `json:"sensitivity_mm,omitempty"`
	FilmDensity   *float64 `json:"film_density,omitempty"`
	DefectCount   *float64 `json:"defect_count,omitempty"`
}

func (p RadiographicParams) ParamsMethod() Method { return MethodRGK }

// SurfaceParams carries surface inspection values (VIK, TVK, PVK, MPK)
type SurfaceParams struct {
	Method_           Method   `json:"-"`
	DefectCount       *float64 `json:"defect_count,omitempty"`
	MaxDefectLengthMM *float64 `json:"max_defect_length_mm,omitempty"`
	CoveragePct       *float64 `json:"coverage_pct,omitempty"`
}

func (p SurfaceParams) ParamsMethod() Method { return p.Method_ }

// VibrationParams carries rotating-equipment monitoring values (VBR)
type VibrationParams struct {
	RMSVelocity *float64 `json:"rms_velocity,omitempty"` // mm/s
	PeakFreqHz  *float64 `json:"peak_freq_hz,omitempty"`
	TempC       *float64 `json:"temp_c,omitempty"`
}

func (p VibrationParams) ParamsMethod() Method { return MethodVBR }

// GeodeticParams carries positioning survey values (GEO)
type GeodeticParams struct {
	DisplacementMM *float64 `json:"displacement_mm,omitempty"`
	SettlementMM   *float64 `json:"settlement_mm,omitempty"`
	TiltDeg        *float64 `json:"tilt_deg,omitempty"`
}

func (p GeodeticParams) ParamsMethod() Method { return MethodGEO }

// Params decodes the raw numeric columns into the method-specific union
func (d *Diagnostic) Params() MethodParams {
	switch d.Method {
	case MethodMFL, MethodTFI:
		return FluxLeakageParams{
			Method_:         d.Method,
			SignalAmplitude: d.Param1,
			DefectLengthMM:  d.Param2,
			DefectDepthPct:  d.Param3,
		}
	case MethodUZT, MethodUZK:
		return ThicknessParams{
			Method_:       d.Method,
			MinWallMM:     d.Param1,
			NominalWallMM: d.Param2,
			LossPct:       d.Param3,
		}
	case MethodRGK:
		return RadiographicParams{
			SensitivityMM: d.Param1,
			FilmDensity:   d.Param2,
			DefectCount:   d.Param3,
		}
	case MethodVIK, MethodTVK, MethodPVK, MethodMPK:
		return SurfaceParams{
			Method_:           d.Method,
			DefectCount:       d.Param1,
			MaxDefectLengthMM: d.Param2,
			CoveragePct:       d.Param3,
		}
	case MethodVBR:
		return VibrationParams{
			RMSVelocity: d.Param1,
			PeakFreqHz:  d.Param2,
			TempC:       d.Param3,
		}
	case MethodGEO:
		return GeodeticParams{
			DisplacementMM: d.Param1,
			SettlementMM:   d.Param2,
			TiltDeg:        d.Param3,
		}
	}
	return nil
}
