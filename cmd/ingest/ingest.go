package ingest

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"

	common "github.com/davidgonveg/trading-advisor-sub002/src/model"
	"github.com/davidgonveg/trading-advisor-sub002/src/utils"
)

const (
	Duration1m = "1m"
	Duration1h = "1h"
)

// OHLCVIngest pulls candles from the exchange and upserts them into the
// interval table selected by DURATION. In auto mode the start point resumes
// from the newest stored row.
type OHLCVIngest struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	exchange goex.API
}

func (o *OHLCVIngest) Start() error {
	o.Config = GetConfig()

	o.exchange = o.newBinanceInstance()

	if o.Config.AutoMode {
		if err := o.determineStartPoint(); err != nil {
			return err
		}
	}

	return o.aggregateAndSave()
}

func (*OHLCVIngest) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (o *OHLCVIngest) aggregateAndSave() error {
	series, err := o.fetchOHLCVSeries()
	if err != nil {
		return err
	}

	for i := range series {
		result := series[i]

		var target interface{}
		target = &common.OHLCVBase{
			Datetime: time.Unix(result.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(result.Open),
			High:     decimal.NewFromFloat(result.High),
			Low:      decimal.NewFromFloat(result.Low),
			Close:    decimal.NewFromFloat(result.Close),
			Volume:   decimal.NewFromFloat(result.Vol),
			Symbol:   result.Pair.String(),
		}

		if o.Config.DurationStr == Duration1m {
			target = target.(*common.OHLCVBase).ConvertToOHLCV1m()
		} else if o.Config.DurationStr == Duration1h {
			target = target.(*common.OHLCVBase).ConvertToOHLCV1h()
		}

		// Upsert: on conflict on (datetime, symbol) do update
		if err := o.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "datetime"}, {Name: "symbol"}}, // Composite unique index columns
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
		}).Create(target).Error; err != nil {
			o.Log.WithError(err).Error("aggregateAndSave, Create, ")
			return err
		}
	}

	o.Log.WithFields(logger.Fields{
		"Symbol": o.Config.Symbol,
		"Rows":   len(series),
	}).Info("OHLCV data inserted or updated in database")

	return nil
}

func (o *OHLCVIngest) determineStartPoint() error {
	o.Config.StartDt = o.Config.StartDt.Add(-o.parseDuration())
	// Align the window end to a whole minute so the request range matches
	// candle boundaries.
	o.Config.EndDt = utils.ResetTime(time.Now(), "minute")

	var latestTime *sql.NullTime
	result := o.getModel().
		Select("MAX(datetime)").
		Where("symbol = ?", o.Config.Symbol+"_"+o.Config.Quote).
		Take(&latestTime)

	o.Log.
		WithField("latestTime", latestTime).
		Info("determineStartPoint")

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			o.Log.
				WithError(result.Error).
				WithField("StartDt", o.Config.StartDt.String()).
				WithField("EndDt", o.Config.EndDt.String()).
				Error("no records found, start from the configured StartDt")
		} else {
			o.Log.
				WithError(result.Error).
				Error("Failed to query latest datetime")
			return result.Error
		}
	}

	if latestTime.Valid {
		// Resume one interval before the last recorded row so the newest
		// (possibly partial) candle gets refreshed by the upsert.
		o.Config.StartDt = latestTime.Time.Add(-o.parseDuration())
		o.Log.
			WithField("StartDt", o.Config.StartDt.String()).
			WithField("EndDt", o.Config.EndDt.String()).
			Info("determineStartPoint valid date found")
	} else {
		err := errors.New("no existing MAX(datetime) found")
		o.Log.
			WithError(err).
			WithField("StartDt", o.Config.StartDt.String()).
			WithField("EndDt", o.Config.EndDt.String()).
			Error("determineStartPoint invalid date found")
	}

	return nil
}

func (o *OHLCVIngest) fetchOHLCVSeries() ([]goex.Kline, error) {
	targetSymbol := goex.NewCurrencyPair(goex.Currency{Symbol: o.Config.Symbol}, goex.Currency{Symbol: o.Config.Quote})

	const millis = 1000
	klines, err := o.exchange.GetKlineRecords(
		targetSymbol,
		o.parseDurationToGoex(),
		o.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", o.Config.StartDt.Unix()*millis).
			Optional("endTime", o.Config.EndDt.Unix()*millis),
	)
	if err != nil {
		return nil, err
	}

	return klines, nil
}

func (o *OHLCVIngest) parseDuration() time.Duration {
	var duration time.Duration
	switch o.Config.DurationStr {
	case Duration1m:
		duration = time.Minute
	case Duration1h:
		duration = time.Hour
	default:
		panic("invalid DURATION env var")
	}
	return duration
}

func (o *OHLCVIngest) parseDurationToGoex() goex.KlinePeriod {
	var duration goex.KlinePeriod
	switch o.Config.DurationStr {
	case Duration1m:
		duration = goex.KLINE_PERIOD_1MIN
	case Duration1h:
		duration = goex.KLINE_PERIOD_1H
	default:
		panic("invalid DURATION env var")
	}
	return duration
}

func (o *OHLCVIngest) getModel() (tx *gorm.DB) {
	switch o.Config.DurationStr {
	case Duration1m:
		tx = o.DB.Model(&common.OHLCV1m{})
	case Duration1h:
		tx = o.DB.Model(&common.OHLCV1h{})
	default:
		panic("getModel, invalid DURATION")
	}
	return tx
}
