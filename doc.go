// Package evoship is a quality-diversity evolutionary search that grows
// 3D block spaceships from an L-system grammar.
//
// The search combines a MAP-Elites behavior archive with the FI-2Pop
// two-population genetic algorithm: feasible individuals compete on a
// weighted sum of fitness objectives while infeasible ones are pushed
// back toward feasibility, either by constraint-violation count or by a
// surrogate fitness estimator trained online.
//
// Key Components:
//
//   - Grammar (pkg/grammar): rule-based production-string expansion with
//     a 3D turtle interpreter and two constraint levels, producing the
//     high- and low-level strings a solution is built from.
//
//   - Solutions (pkg/solution): candidate ships with lineage tracked
//     through an arena, module genomes, and JSON records for persistence.
//
//   - Archive (pkg/archive): the behavior grid. Bins hold bounded
//     feasible/infeasible populations, age out stale individuals,
//     subdivide when saturated, and support random, emitter-driven,
//     bandit-driven and human-interactive steps.
//
//   - Emitters (pkg/emitters): bin-selection strategies, from uniform
//     random to a decaying human-preference matrix.
//
//   - Estimators (pkg/estimator): Gaussian-process and MLP surrogates
//     for infeasible fitness, fed by a bounded training buffer.
//
//   - FI-2Pop (pkg/fi2pop): the vanilla two-population solver without
//     the archive, for baseline comparisons.
//
//   - Hull (pkg/hull): convex-hull plating of evolved ships with
//     erosion and slope smoothing.
//
//   - Storage (pkg/storage) and datasets (pkg/datasets): SQLite-backed
//     run persistence and Parquet exchange of estimator training pairs.
//
// The cmd/evoship-cli module provides a command-line interface for
// running, inspecting, and interactively steering searches.
package evoship
