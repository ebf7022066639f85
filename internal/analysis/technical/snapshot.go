package technical

// Trend labels.
const (
	TrendBullish  = "BULLISH"
	TrendBearish  = "BEARISH"
	TrendSideways = "SIDEWAYS"
)

// Overbought/oversold thresholds and the proximity tolerance for
// support/resistance checks.
const (
	OverboughtRSI  = 70.0
	OversoldRSI    = 30.0
	LevelTolerance = 0.05
)

// Snapshot is the full indicator read for one instrument at one moment.
// Pointer fields are nil when the series is too short to compute them.
type Snapshot struct {
	Close  float64
	Volume int64

	SMA20  *float64
	SMA50  *float64
	SMA200 *float64
	EMA12  *float64
	EMA26  *float64

	RSI        *float64
	MACD       *MACDResult
	Bollinger  *BollingerBands
	Volatility *float64
	Levels     *Levels

	Trend          string
	Overbought     bool
	Oversold       bool
	GoldenCross    bool
	DeathCross     bool
	NearSupport    bool
	NearResistance bool
}

// Analyze computes a Snapshot from chronologically ordered bars. Short
// series degrade gracefully: whatever cannot be computed stays nil and the
// trend reads SIDEWAYS.
func Analyze(highs, lows, closes []float64, volume int64) Snapshot {
	snap := Snapshot{Trend: TrendSideways, Volume: volume}
	if len(closes) == 0 {
		return snap
	}
	snap.Close = closes[len(closes)-1]

	snap.SMA20 = maybe(SMA(closes, 20))
	snap.SMA50 = maybe(SMA(closes, 50))
	snap.SMA200 = maybe(SMA(closes, 200))
	snap.EMA12 = maybe(EMA(closes, MACDFast))
	snap.EMA26 = maybe(EMA(closes, MACDSlow))
	snap.RSI = maybe(RSI(closes, RSIPeriod))
	snap.Volatility = maybe(Volatility(closes, VolWindow))

	if m, ok := MACD(closes); ok {
		snap.MACD = &m
	}
	if b, ok := Bollinger(closes, BollingerWindow, BollingerK); ok {
		snap.Bollinger = &b
	}
	if lv, ok := SupportResistance(highs, lows, closes, PivotWindow); ok {
		snap.Levels = &lv
	}

	if snap.SMA20 != nil && snap.SMA50 != nil {
		switch {
		case snap.Close > *snap.SMA20 && snap.Close > *snap.SMA50:
			snap.Trend = TrendBullish
		case snap.Close < *snap.SMA20 && snap.Close < *snap.SMA50:
			snap.Trend = TrendBearish
		}
	}

	if snap.RSI != nil {
		snap.Overbought = *snap.RSI >= OverboughtRSI
		snap.Oversold = *snap.RSI <= OversoldRSI
	}
	if snap.SMA50 != nil && snap.SMA200 != nil {
		snap.GoldenCross = *snap.SMA50 > *snap.SMA200
		snap.DeathCross = *snap.SMA50 < *snap.SMA200
	}
	if snap.Levels != nil {
		snap.NearSupport = NearLevel(snap.Close, snap.Levels.Support1, LevelTolerance)
		snap.NearResistance = NearLevel(snap.Close, snap.Levels.Resistance1, LevelTolerance)
	}

	return snap
}

// Indicators flattens the snapshot into the key/value document persisted on
// trading signals.
func (s Snapshot) Indicators() map[string]interface{} {
	doc := map[string]interface{}{
		"close":           s.Close,
		"volume":          s.Volume,
		"trend":           s.Trend,
		"overbought":      s.Overbought,
		"oversold":        s.Oversold,
		"golden_cross":    s.GoldenCross,
		"death_cross":     s.DeathCross,
		"near_support":    s.NearSupport,
		"near_resistance": s.NearResistance,
	}
	putFloat := func(key string, v *float64) {
		if v != nil {
			doc[key] = *v
		}
	}
	putFloat("sma_20", s.SMA20)
	putFloat("sma_50", s.SMA50)
	putFloat("sma_200", s.SMA200)
	putFloat("ema_12", s.EMA12)
	putFloat("ema_26", s.EMA26)
	putFloat("rsi", s.RSI)
	putFloat("volatility", s.Volatility)
	if s.MACD != nil {
		doc["macd"] = s.MACD.Line
		doc["macd_signal"] = s.MACD.Signal
		doc["macd_histogram"] = s.MACD.Histogram
	}
	if s.Bollinger != nil {
		doc["bollinger_upper"] = s.Bollinger.Upper
		doc["bollinger_middle"] = s.Bollinger.Middle
		doc["bollinger_lower"] = s.Bollinger.Lower
	}
	if s.Levels != nil {
		doc["pivot"] = s.Levels.Pivot
		doc["support_1"] = s.Levels.Support1
		doc["support_2"] = s.Levels.Support2
		doc["resistance_1"] = s.Levels.Resistance1
		doc["resistance_2"] = s.Levels.Resistance2
	}
	return doc
}

func maybe(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
