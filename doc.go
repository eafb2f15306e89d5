// Package davidson implements a block, preconditioned Jacobi-Davidson /
// Generalized Davidson eigensolver for large, possibly distributed,
// Hermitian linear operators.
//
// The operator is never materialized: callers supply a MatVec and,
// optionally, a Preconditioner. The solver grows an orthonormal search
// subspace, extracts Ritz pairs from the small projected problem, tests
// convergence, restarts with thick-restart ("+k") recurrence retention, and
// locks converged pairs when requested. It dynamically switches between a
// preconditioned GD+k correction step and an inner JDQMR Krylov correction
// using a runtime cost model.
//
// The dense projected eigensolver, the SVD used for harmonic/refined
// extraction, re-orthogonalization, and the inner correction solve are all
// narrow external collaborators (see DenseEigenSolver, DenseSVDSolver,
// Orthogonalizer, CorrectionSolver); the package ships defaults backed by
// gonum.org/v1/gonum but callers may substitute their own.
package davidson
