package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/persist"
)

const bigIDs = `[
  {"title": "a", "year": 2023, "id": 12345678901234567891, "score": 0.1},
  {"title": "b", "year": 2024, "id": 98765432109876543210, "score": 1e-7},
  {"title": "c", "year": 2022, "id": 9007199254740993, "score": 3}
]`

// TestRunner_Run_PapersKeepNumbers resumes a run over papers carrying
// integers beyond float64 precision, so every record passes through the
// partial files before the output is written.
func TestRunner_Run_PapersKeepNumbers(t *testing.T) {
	t.Parallel()

	for _, codec := range []persist.Codec{persist.NewJSONCodec(), persist.NewLZ4Codec(persist.NewJSONCodec())} {
		t.Run(codec.Extension(), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()

			records, err := paper.Decode(strings.NewReader(bigIDs))
			require.NoError(t, err)

			cfg := driver.Config[paper.Paper]{
				Stage:     "categorize",
				Outputs:   []driver.Output{{Partition: "categorized", Path: filepath.Join(dir, "out.json")}},
				BatchSize: 1,
				Write:     paper.SaveList,
				Codec:     codec,
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			first, err := driver.New[paper.Paper](cfg, driver.ProcessorFunc[paper.Paper](
				func(ctx context.Context, b driver.Batch[paper.Paper]) (driver.Partitions[paper.Paper], error) {
					if b.Number == 3 {
						cancel()

						return nil, ctx.Err()
					}

					return driver.Partitions[paper.Paper]{"categorized": b.Records}, nil
				}))
			require.NoError(t, err)

			_, err = first.Run(ctx, records)
			require.ErrorIs(t, err, driver.ErrInterrupted)

			second, err := driver.New[paper.Paper](cfg, driver.ProcessorFunc[paper.Paper](
				func(_ context.Context, b driver.Batch[paper.Paper]) (driver.Partitions[paper.Paper], error) {
					return driver.Partitions[paper.Paper]{"categorized": b.Records}, nil
				}))
			require.NoError(t, err)

			summary, err := second.Run(context.Background(), records)
			require.NoError(t, err)
			assert.True(t, summary.Resumed)

			data, err := os.ReadFile(filepath.Join(dir, "out.json"))
			require.NoError(t, err)

			text := string(data)
			for _, lit := range []string{"12345678901234567891", "98765432109876543210", "9007199254740993", "1e-7", `"year": 2023`} {
				assert.Contains(t, text, lit)
			}

			out, err := paper.LoadList(filepath.Join(dir, "out.json"))
			require.NoError(t, err)
			assert.Equal(t, records, out)
		})
	}
}
