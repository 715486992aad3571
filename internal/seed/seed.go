// Package seed generates synthetic order CSV files for local runs.
package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Columns is the header written by Generate.
var Columns = []string{"order_id", "customer_id", "order_ts", "amount", "status"}

var statuses = []string{"pending", "shipped", "delivered", "cancelled", "returned"}

// Options controls the generated data.
type Options struct {
	Rows      int
	Customers int
	Start     time.Time
	End       time.Time
	Seed      int64

	// DirtyRate is the fraction of rows given one defect: a missing id,
	// a negative amount, an unknown status, an unparseable timestamp or a
	// repeated id.
	DirtyRate float64
}

// DefaultOptions returns 1000 clean rows over 90 days for 100 customers.
func DefaultOptions() Options {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return Options{
		Rows:      1000,
		Customers: 100,
		Start:     end.AddDate(0, 0, -90),
		End:       end,
		Seed:      1,
	}
}

// Stats counts what Generate wrote.
type Stats struct {
	Rows  int
	Dirty int
}

// Generate writes a header and opts.Rows order rows to w. The same options
// always produce the same bytes.
func Generate(w io.Writer, opts Options) (Stats, error) {
	if opts.Rows < 0 || opts.Customers <= 0 {
		return Stats{}, fmt.Errorf("seed: rows must be >= 0 and customers > 0")
	}
	if !opts.End.After(opts.Start) {
		return Stats{}, fmt.Errorf("seed: end must be after start")
	}
	if opts.DirtyRate < 0 || opts.DirtyRate > 1 {
		return Stats{}, fmt.Errorf("seed: dirty rate must be within [0, 1]")
	}

	faker := gofakeit.New(opts.Seed)
	customers := make([]string, opts.Customers)
	for i := range customers {
		customers[i] = fmt.Sprintf("C%05d", i+1)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return Stats{}, err
	}

	var stats Stats
	for i := 0; i < opts.Rows; i++ {
		row := []string{
			fmt.Sprintf("O%07d", i+1),
			faker.RandomString(customers),
			faker.DateRange(opts.Start, opts.End).UTC().Format(time.RFC3339),
			strconv.FormatFloat(faker.Price(1, 500), 'f', 2, 64),
			faker.RandomString(statuses),
		}
		if opts.DirtyRate > 0 && faker.Float64Range(0, 1) < opts.DirtyRate {
			corrupt(faker, row, i)
			stats.Dirty++
		}
		if err := cw.Write(row); err != nil {
			return stats, err
		}
		stats.Rows++
	}

	cw.Flush()
	return stats, cw.Error()
}

func corrupt(faker *gofakeit.Faker, row []string, i int) {
	switch faker.Number(0, 4) {
	case 0:
		row[0] = ""
	case 1:
		row[3] = "-" + row[3]
	case 2:
		row[4] = faker.Word()
	case 3:
		row[2] = "not-a-date"
	default:
		if i > 0 {
			row[0] = fmt.Sprintf("O%07d", i)
		} else {
			row[0] = ""
		}
	}
}
