package main

import (
	"net/http"

	"github.com/walkure/shtnode/pkg/metrics"
	"github.com/walkure/shtnode/pkg/sht3x"
	"github.com/walkure/shtnode/pkg/weather"
)

type MetricData struct {
	temp            *metrics.Gauge
	relHumid        *metrics.Gauge
	absHumid        *metrics.Gauge
	disconfortIndex *metrics.Gauge
	sensorError     *metrics.Gauge
	stale           *metrics.Gauge
	motion          *metrics.Gauge

	cycles           *metrics.Counter
	timeouts         *metrics.Counter
	transmitFailures *metrics.Counter
	shortReads       *metrics.Counter
	tempCRCFailures  *metrics.Counter
	humCRCFailures   *metrics.Counter

	last sht3x.Stats
	d    *metrics.MetricSet
}

func NewMetrics(baseLabels metrics.Labels) *MetricData {
	d := metrics.NewMetricSet(baseLabels)
	return &MetricData{
		temp:            d.NewGauge("temperature", "Temperature", 2),
		relHumid:        d.NewGauge("relative_humidity", "Relative Humidity percent", 0),
		absHumid:        d.NewGauge("absolute_humidity", "Absolute Humidity g/m^3", 2),
		disconfortIndex: d.NewGauge("disconfort_index", "Disconfort Index", 2),
		sensorError:     d.NewGauge("sensor_error", "1 while the sensor does not respond", 0),
		stale:           d.NewGauge("sensor_stale", "1 while no fresh reading arrived in time", 0),
		motion:          d.NewGauge("motion", "1 while movement is detected", 0),

		cycles:           d.NewCounter("sht3x_cycles_total", "Completed measurement cycles"),
		timeouts:         d.NewCounter("sht3x_timeouts_total", "Response windows that expired"),
		transmitFailures: d.NewCounter("sht3x_transmit_failures_total", "Rejected measurement commands"),
		shortReads:       d.NewCounter("sht3x_short_reads_total", "Incomplete responses"),
		tempCRCFailures:  d.NewCounter("sht3x_temperature_crc_failures_total", "Temperature words failing CRC"),
		humCRCFailures:   d.NewCounter("sht3x_humidity_crc_failures_total", "Humidity words failing CRC"),
		d:                d,
	}
}

func (m *MetricData) Handler() http.Handler {
	return m.d.Handler()
}

// UpdateReading exposes the values the driver currently reports. Sentinel
// values clear the gauges instead of being scraped.
func (m *MetricData) UpdateReading(code sht3x.ErrorCode, temp, humid float64) {
	if code == sht3x.NotResponding {
		m.sensorError.Set(1)
	} else {
		m.sensorError.Set(0)
	}

	tempOK := temp != sht3x.InvalidTemperature
	humidOK := humid != sht3x.InvalidHumidity
	if tempOK {
		m.temp.Set(temp)
	} else {
		m.temp.Clear()
	}
	if humidOK {
		m.relHumid.Set(humid)
	} else {
		m.relHumid.Clear()
	}
	if tempOK && humidOK {
		m.absHumid.Set(weather.AbsoluteHumidity(temp, humid))
		m.disconfortIndex.Set(weather.DisconfortIndex(temp, humid))
	} else {
		m.absHumid.Clear()
		m.disconfortIndex.Clear()
	}
}

// UpdateStats adds the counter increments since the previous call.
func (m *MetricData) UpdateStats(s sht3x.Stats) {
	m.cycles.Add(s.Cycles - m.last.Cycles)
	m.timeouts.Add(s.Timeouts - m.last.Timeouts)
	m.transmitFailures.Add(s.TransmitFailures - m.last.TransmitFailures)
	m.shortReads.Add(s.ShortReads - m.last.ShortReads)
	m.tempCRCFailures.Add(s.TempCRCFailures - m.last.TempCRCFailures)
	m.humCRCFailures.Add(s.HumCRCFailures - m.last.HumCRCFailures)
	m.last = s
}

func (m *MetricData) UpdateMotion(moving bool) {
	m.motion.Set(b2f(moving))
}

func (m *MetricData) UpdateStale(stale bool) {
	m.stale.Set(b2f(stale))
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
