package presets

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/luxdeck/internal/audio"
	"github.com/coreman2200/luxdeck/internal/gfx"
	"github.com/coreman2200/luxdeck/internal/preset"
)

func TestCatalogLoads(t *testing.T) {
	r := preset.NewRegistry(Catalog(), zerolog.Nop())
	r.LoadAll()
	defs := r.Definitions()
	require.Len(t, defs, 6)
	for _, d := range defs {
		assert.NotEmpty(t, d.ID)
		assert.NotNil(t, d.Factory, d.ID)
	}
}

// Every built-in must survive a full lifecycle against a real target with
// and without audio.
func TestBuiltinsRenderSafely(t *testing.T) {
	r := preset.NewRegistry(Catalog(), zerolog.Nop())
	r.LoadAll()
	defer r.Dispose()

	target, err := gfx.NewTarget(32, 18, 1)
	require.NoError(t, err)

	for _, d := range r.Definitions() {
		d := d
		t.Run(d.ID, func(t *testing.T) {
			scene := gfx.NewScene()
			inst, err := r.Activate(d.ID, scene, preset.Key{Layer: "background", Preset: d.ID}, d.Defaults.Clone())
			require.NoError(t, err)

			// no audio yet
			inst.Update(0.0)
			scene.Draw(target)

			inst.SetAudio(&audio.Snapshot{Low: 0.8, Mid: 0.5, High: 0.3, Spectrum: []float64{0.9, 0.5, 0.2, 0.1}})
			inst.Beat()
			inst.Update(0.016)
			target.Clear(gfx.Transparent)
			scene.Draw(target)

			// something should have been painted
			painted := false
			for _, c := range target.Pix() {
				if c.A > 0 {
					painted = true
					break
				}
			}
			assert.True(t, painted, "%s painted nothing", d.ID)

			r.Deactivate(preset.Key{Layer: "background", Preset: d.ID})
		})
	}
}

func TestMarqueeFamilyTexts(t *testing.T) {
	r := preset.NewRegistry(Catalog(), zerolog.Nop())
	r.LoadAll()
	defer r.Dispose()

	ids, err := r.ExpandFamily("marquee", 3)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	// siblings carry independent default trees
	d1, ok := r.Get(ids[0])
	require.True(t, ok)
	d2, ok := r.Get(ids[1])
	require.True(t, ok)
	d1.Defaults.Set("text", "ONE")
	assert.Equal(t, "LUXDECK", d2.Defaults.GetString("text", ""))
}
