// Command validate checks AiTown map documents in a directory of JSON
// files. It verifies:
//   - JSON structure and required fields (mirrors config.MapDoc.Validate)
//   - Grid consistency: rectangular objects layer matching width/height
//   - At least one walkable (spawn-safe) tile
//   - Connectivity: every walkable tile is reachable from every other
//     walkable tile via 4-directional movement (one connected region),
//     so a planner never strands an agent on an isolated island
//
// This generalizes the teacher's validate/validate.go (which checked a
// Tesla-road-trip grid legend, home/park counts, and home-to-park
// reachability) to AiTown's walkable/blocked object grid.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/aitown/internal/config"
)

// Result captures the outcome of validating a single map file.
type Result struct {
	File   string
	Valid  bool
	Notes  []string
	Errors []string
}

// validateMapFile loads and validates a single map JSON file.
func validateMapFile(path string) Result {
	result := Result{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	var doc config.MapDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("invalid JSON: %v", err))
		return result
	}

	if err := doc.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	walkableCount, spawnSafe := countWalkable(doc.Objects)
	if !spawnSafe {
		result.Valid = false
		result.Errors = append(result.Errors, "no spawn-safe tile found (walkable cell with at least one walkable in-bounds neighbor)")
	}

	unreachable := unreachableWalkableTiles(doc.Objects)
	if len(unreachable) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("connectivity failure: %d walkable tile(s) unreachable from the rest of the map", len(unreachable)))
		for _, t := range unreachable {
			if len(result.Errors) > 20 {
				result.Errors = append(result.Errors, "... (truncated)")
				break
			}
			result.Errors = append(result.Errors, fmt.Sprintf("unreachable tile at (%d,%d)", t[0], t[1]))
		}
	}

	if result.Valid {
		result.Notes = append(result.Notes,
			fmt.Sprintf("name: %s", doc.Name),
			fmt.Sprintf("grid: %dx%d", doc.Width, doc.Height),
			fmt.Sprintf("walkable tiles: %d", walkableCount),
		)
	}
	return result
}

// countWalkable counts walkable cells and reports whether at least one
// has an in-bounds, walkable neighbor (a tile an agent could spawn onto
// and immediately have somewhere to go).
func countWalkable(objects [][]int) (count int, spawnSafe bool) {
	height := len(objects)
	for y, row := range objects {
		for x, v := range row {
			if v != -1 {
				continue
			}
			count++
			for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := x+d[0], y+d[1]
				if ny >= 0 && ny < height && nx >= 0 && nx < len(objects[ny]) && objects[ny][nx] == -1 {
					spawnSafe = true
				}
			}
		}
	}
	return count, spawnSafe
}

// unreachableWalkableTiles flood-fills from the first walkable tile
// found and returns every walkable tile the flood fill never reached.
func unreachableWalkableTiles(objects [][]int) [][2]int {
	height := len(objects)
	if height == 0 {
		return nil
	}

	var start *[2]int
	for y, row := range objects {
		for x, v := range row {
			if v == -1 {
				start = &[2]int{x, y}
				break
			}
		}
		if start != nil {
			break
		}
	}
	if start == nil {
		return nil
	}

	visited := make(map[[2]int]bool)
	queue := [][2]int{*start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		x, y := cur[0], cur[1]
		for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if ny < 0 || ny >= height || nx < 0 || nx >= len(objects[ny]) {
				continue
			}
			if objects[ny][nx] != -1 {
				continue
			}
			next := [2]int{nx, ny}
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	var unreachable [][2]int
	for y, row := range objects {
		for x, v := range row {
			if v == -1 && !visited[[2]int{x, y}] {
				unreachable = append(unreachable, [2]int{x, y})
			}
		}
	}
	return unreachable
}

func main() {
	dir := flag.String("maps-dir", "configs/maps", "directory containing map JSON files")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*dir, "*.json"))
	if err != nil {
		fmt.Printf("error finding map files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateMapFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Println("VALID")
			for _, n := range result.Notes {
				fmt.Println("  " + n)
			}
		} else {
			fmt.Println("INVALID")
			allValid = false
			for _, e := range result.Errors {
				fmt.Println("  - " + e)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("all maps valid")
	} else {
		fmt.Println("some maps have errors")
		os.Exit(1)
	}
}
