package dataset

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"surge/internal/market"
)

// Tick 是归一化后的一笔成交。TS 为 Unix 毫秒。
type Tick struct {
	TS    int64
	Price float64
	Qty   float64
}

// 列名别名表。全部先转小写去空白再匹配。
var (
	tsAliases    = []string{"timestamp", "time", "ts"}
	priceAliases = []string{"price", "p"}
	qtyAliases   = []string{"qty", "quantity", "size", "amount", "vol", "volume"}
	openAliases  = []string{"open", "o"}
	highAliases  = []string{"high", "h"}
	lowAliases   = []string{"low", "l"}
	closeAliases = []string{"close", "c"}
	tradeAliases = []string{"trades", "count", "n"}
)

func columnIndex(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, col := range header {
			if strings.ToLower(strings.TrimSpace(col)) == alias {
				return i
			}
		}
	}
	return -1
}

// sniffDelimiter 从首行猜测分隔符（逗号/分号/制表符）。
func sniffDelimiter(line string) rune {
	for _, d := range []rune{',', ';', '\t'} {
		if strings.ContainsRune(line, d) {
			return d
		}
	}
	return ','
}

// parseEpoch 识别数值时间戳（毫秒或秒）与 ISO8601 字符串，统一返回毫秒。
func parseEpoch(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("时间戳为空")
	}
	if num, err := strconv.ParseFloat(raw, 64); err == nil {
		// 1e11 之上视为毫秒，之下视为秒
		if num > 1e11 {
			return int64(num), nil
		}
		return int64(num * 1000), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("无法识别的时间戳: %q", raw)
}

// openCSV 打开 .csv 或 .zip（取其中第一个 CSV），返回 reader 与清理函数。
func openCSV(path string) (io.ReadCloser, func() error, error) {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		zf, err := zip.OpenReader(path)
		if err != nil {
			return nil, nil, err
		}
		for _, entry := range zf.File {
			if strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
				rc, err := entry.Open()
				if err != nil {
					zf.Close()
					return nil, nil, err
				}
				return rc, func() error {
					rc.Close()
					return zf.Close()
				}, nil
			}
		}
		zf.Close()
		return nil, nil, fmt.Errorf("%s 内未找到 CSV", path)
	}
	return nil, nil, fmt.Errorf("不支持的数据文件: %s", path)
}

func newReader(r io.Reader) (*csv.Reader, []string, error) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 1)
	for {
		n, err := r.Read(tmp)
		if n > 0 {
			if tmp[0] == '\n' {
				break
			}
			buf = append(buf, tmp[0])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, err
		}
	}
	headerLine := strings.TrimRight(string(buf), "\r")
	delim := sniffDelimiter(headerLine)
	header := strings.Split(headerLine, string(delim))
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	return cr, header, nil
}

// readTickFile 读取 tick CSV/ZIP，返回归一化 tick 与被跳过的行数。
// 缺少 qty 列时默认每笔数量为 1。
func readTickFile(path string) ([]Tick, int, error) {
	rc, done, err := openCSV(path)
	if err != nil {
		return nil, 0, err
	}
	defer done()

	cr, header, err := newReader(rc)
	if err != nil {
		return nil, 0, err
	}
	tsIdx := columnIndex(header, tsAliases)
	pxIdx := columnIndex(header, priceAliases)
	qtyIdx := columnIndex(header, qtyAliases)
	if tsIdx < 0 || pxIdx < 0 {
		return nil, 0, fmt.Errorf("tick 文件缺少必需列（现有: %v）", header)
	}

	var ticks []Tick
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if tsIdx >= len(rec) || pxIdx >= len(rec) {
			skipped++
			continue
		}
		ts, err := parseEpoch(rec[tsIdx])
		if err != nil {
			skipped++
			continue
		}
		px, err := strconv.ParseFloat(strings.TrimSpace(rec[pxIdx]), 64)
		if err != nil || px <= 0 {
			skipped++
			continue
		}
		qty := 1.0
		if qtyIdx >= 0 && qtyIdx < len(rec) {
			if q, err := strconv.ParseFloat(strings.TrimSpace(rec[qtyIdx]), 64); err == nil && q >= 0 {
				qty = q
			} else {
				skipped++
				continue
			}
		}
		ticks = append(ticks, Tick{TS: ts, Price: px, Qty: qty})
	}
	return ticks, skipped, nil
}

// readOHLCVFile 读取预聚合 OHLCV CSV/ZIP。
func readOHLCVFile(path string) ([]market.Candle, int, error) {
	rc, done, err := openCSV(path)
	if err != nil {
		return nil, 0, err
	}
	defer done()

	cr, header, err := newReader(rc)
	if err != nil {
		return nil, 0, err
	}
	tsIdx := columnIndex(header, tsAliases)
	oIdx := columnIndex(header, openAliases)
	hIdx := columnIndex(header, highAliases)
	lIdx := columnIndex(header, lowAliases)
	cIdx := columnIndex(header, closeAliases)
	vIdx := columnIndex(header, qtyAliases)
	nIdx := columnIndex(header, tradeAliases)
	if tsIdx < 0 || oIdx < 0 || hIdx < 0 || lIdx < 0 || cIdx < 0 {
		return nil, 0, fmt.Errorf("OHLCV 文件缺少必需列（现有: %v）", header)
	}

	var candles []market.Candle
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		need := []int{tsIdx, oIdx, hIdx, lIdx, cIdx}
		bad := false
		for _, idx := range need {
			if idx >= len(rec) {
				bad = true
				break
			}
		}
		if bad {
			skipped++
			continue
		}
		ts, err := parseEpoch(rec[tsIdx])
		if err != nil {
			skipped++
			continue
		}
		vals := make([]float64, 4)
		for i, idx := range []int{oIdx, hIdx, lIdx, cIdx} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
			if err != nil {
				bad = true
				break
			}
			vals[i] = v
		}
		if bad {
			skipped++
			continue
		}
		var vol float64
		if vIdx >= 0 && vIdx < len(rec) {
			vol, _ = strconv.ParseFloat(strings.TrimSpace(rec[vIdx]), 64)
		}
		var trades int64
		if nIdx >= 0 && nIdx < len(rec) {
			trades, _ = strconv.ParseInt(strings.TrimSpace(rec[nIdx]), 10, 64)
		}
		candles = append(candles, market.Candle{
			OpenTime: ts,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vol,
			Trades:   trades,
		})
	}
	return candles, skipped, nil
}
