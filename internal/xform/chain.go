package xform

import (
	"log/slog"

	"github.com/CBICA/greedy/internal/deform"
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
)

// ComposeChain resolves a list of transform-chain entries into a single
// dense displacement field over refGeom, per §4.8. Displacement-field
// entries are folded into the running field with u ← u_i∘u + u_i, the
// same compose-then-add form as the deformable solver's per-iteration
// update (which instead composes the running field outside the step,
// u ← u∘g + g). Affine entries
// are first converted to a voxel-space displacement ui(i) = T·i − i
// anchored on refGeom, which already gives the correct assignment
// u(i) ← A·p − geom(i) on its own, so they are folded with the bare
// composition u ← u_i∘u and no extra add — the same distinction
// internal/deform/invert.go draws between composing two fields
// (u∘v, no add) and a field's per-iteration gradient update (add).
func ComposeChain(refGeom *geom.Geometry, entries []ChainEntry, logger *slog.Logger) (*ndimage.Image, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u := ndimage.NewVector(refGeom)
	for i, e := range entries {
		ui, err := resolveEntry(refGeom, e)
		if err != nil {
			return nil, err
		}
		next := kernel.Compose(ui, u)
		if e.Kind != KindAffine {
			kernel.AddInPlace(next, ui)
		}
		u = next
		logger.Info("transform chain entry composed", "index", i, "kind", e.Kind, "exponent", e.Exponent)
	}
	return u, nil
}

// resolveEntry turns one chain entry into a displacement field over
// refGeom, applying its exponent (inversion) first.
func resolveEntry(refGeom *geom.Geometry, e ChainEntry) (*ndimage.Image, error) {
	switch e.Kind {
	case KindAffine:
		voxelT := geom.RASToVoxel(e.Affine, refGeom)
		if e.Exponent == -1 {
			inv, err := voxelT.Inverse()
			if err != nil {
				return nil, err
			}
			voxelT = inv
		}
		return kernel.DisplacementFromAffine(refGeom, voxelT), nil
	default:
		field := e.Field
		if e.Exponent == -1 {
			inv, err := deform.InvertDisplacement(field, 3, 20, 1e-6)
			if err != nil {
				// inversion stalled; log and keep the best-effort field
				// rather than failing the whole chain, per §7.
				slog.Default().Warn("transform chain inversion did not fully converge", "error", err)
			}
			field = inv
		}
		return resampleFieldToRef(field, refGeom), nil
	}
}

// resampleFieldToRef resamples a displacement field stored in another
// grid onto refGeom, rescaling each vector component by the ratio of
// source-to-reference voxel spacing along that component's axis so the
// underlying physical displacement is preserved.
func resampleFieldToRef(field *ndimage.Image, refGeom *geom.Geometry) *ndimage.Image {
	if sameGeometry(field.Geom, refGeom) {
		return field.Clone()
	}
	out := kernel.IdentityResampleField(field, refGeom)
	d := refGeom.D
	kernel.Parallel(out.NumVoxels(), func(start, end int) {
		for v := start; v < end; v++ {
			val := out.AtLinear(v)
			for a := 0; a < d; a++ {
				val[a] *= field.Geom.Spacing[a] / refGeom.Spacing[a]
			}
		}
	})
	return out
}

func sameGeometry(a, b *geom.Geometry) bool {
	if a.D != b.D {
		return false
	}
	for i := range a.Size {
		if a.Size[i] != b.Size[i] {
			return false
		}
	}
	return true
}
