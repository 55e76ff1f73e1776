// Package config loads the two kinds of operational configuration the
// engine needs before a world can run: static Map documents (tile grid
// plus object-occupancy grid) and the engine's tick-loop constants.
//
// Map documents live as JSON files on disk, cached, validated, and with
// a default selection — the same shape as the teacher's
// game/config.Manager, generalized from game layouts to AiTown maps.
package config
