package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// --- 结构体定义 (Schema) ---

// PriceRecord 某只股票在一个交易日的行情快照, (code, date) 唯一
type PriceRecord struct {
	Code         string      `col:"code"`
	Date         time.Time   `col:"date"        type:"date"`
	Time         null.String `col:"time"        type:"time"`
	Floor        null.String `col:"floor"`
	Type         null.String `col:"type"`
	BasicPrice   null.Float  `col:"basic_price"`
	CeilingPrice null.Float  `col:"ceiling_price"`
	FloorPrice   null.Float  `col:"floor_price"`
	Open         null.Float  `col:"open"`
	High         null.Float  `col:"high"`
	Low          null.Float  `col:"low"`
	Close        null.Float  `col:"close"`
	Average      null.Float  `col:"average"`
	AdOpen       null.Float  `col:"ad_open"`
	AdHigh       null.Float  `col:"ad_high"`
	AdLow        null.Float  `col:"ad_low"`
	AdClose      null.Float  `col:"ad_close"`
	AdAverage    null.Float  `col:"ad_average"`
	NmVolume     null.Float  `col:"nm_volume"`
	NmValue      null.Float  `col:"nm_value"`
	PtVolume     null.Float  `col:"pt_volume"`
	PtValue      null.Float  `col:"pt_value"`
	Change       null.Float  `col:"change"`
	AdChange     null.Float  `col:"ad_change"`
	PctChange    null.Float  `col:"pct_change"`
}

// SyncLog 每次同步运行的审计记录, 不参与水位计算
type SyncLog struct {
	RunID      string      `col:"run_id"`
	StartedAt  time.Time   `col:"started_at"  type:"datetime"`
	FinishedAt time.Time   `col:"finished_at" type:"datetime"`
	Stage      string      `col:"stage"`
	Status     string      `col:"status"`
	FromDate   time.Time   `col:"from_date"   type:"date"`
	ToDate     time.Time   `col:"to_date"     type:"date"`
	Watermark  null.Time   `col:"watermark"   type:"date"`
	Fetched    int64       `col:"fetched"`
	Accepted   int64       `col:"accepted"`
	Written    int64       `col:"written"`
	Error      null.String `col:"error"`
}

// LatestPrice 对应 v_stock_price_latest, 每只股票最新一条
type LatestPrice struct {
	Code      string     `col:"code"`
	Date      time.Time  `col:"date"`
	Close     null.Float `col:"close"`
	PctChange null.Float `col:"pct_change"`
	NmVolume  null.Float `col:"nm_volume"`
}

// --- 表结构元数据 (TableMeta) ---

var TablePrices = SchemaFromStruct(
	"stock_price",
	PriceRecord{},
	[]string{"code", "date"},
)

var TableSyncLog = SchemaFromStruct(
	"sync_log",
	SyncLog{},
	[]string{"run_id"},
)
