package cmd

import (
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/arkcheck/arkcheck/envconfig"
)

// showProgress - Fortschrittsbalken nur im Terminal und ohne ARKCHECK_NOPROGRESS
func showProgress() bool {
	return !envconfig.NoProgress() && term.IsTerminal(int(os.Stderr.Fd()))
}

// downloadBar zeigt den Fortschritt eines Modell-Downloads. Der Balken wird
// beim ersten Callback angelegt, weil die Groesse erst dann bekannt ist.
type downloadBar struct {
	bar *pb.ProgressBar
}

func (d *downloadBar) update(downloaded, total int64) {
	if d.bar != nil && downloaded < d.bar.Current() {
		d.finish()
	}
	if d.bar == nil {
		d.bar = pb.New64(total).SetTemplate(pb.Full).SetWriter(os.Stderr).Set(pb.Bytes, true).Start()
	}
	if total > 0 {
		d.bar.SetTotal(total)
	}
	d.bar.SetCurrent(downloaded)
}

// finish schliesst den aktuellen Balken ab; der naechste Download bekommt einen neuen
func (d *downloadBar) finish() {
	if d.bar != nil {
		d.bar.Finish()
		d.bar = nil
	}
}
