package mesh

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unixpickle/essentials"
)

// Write persists the mesh as a legacy-ASCII VTK
// structured-points file, creating parent directories as
// needed.
func (m *Mesh) Write(path string) (err error) {
	defer essentials.AddCtxTo("write mesh", &err)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# vtk DataFile Version 2.0")
	fmt.Fprintln(w, "approximate solution")
	fmt.Fprintln(w, "ASCII")
	fmt.Fprintln(w, "DATASET STRUCTURED_POINTS")
	fmt.Fprintf(w, "DIMENSIONS %d %d 1\n", m.cols, m.rows)
	fmt.Fprintln(w, "ORIGIN 0 0 0")
	fmt.Fprintf(w, "SPACING %g %g 1\n", m.hx(), m.hy())
	fmt.Fprintf(w, "POINT_DATA %d\n", m.rows*m.cols)
	fmt.Fprintln(w, "SCALARS solution double")
	fmt.Fprintln(w, "LOOKUP_TABLE default")
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			if c > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%g", m.data[r*m.cols+c]); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
