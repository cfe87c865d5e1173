package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/plugwatch/plugwatch/internal/csvlog"
	"github.com/plugwatch/plugwatch/internal/keepalive"
	"github.com/plugwatch/plugwatch/internal/session"
	"github.com/plugwatch/plugwatch/internal/style"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupDiag,
	Short:   "Show session, heartbeat, and per-device log state",
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")

	rootCmd.AddCommand(statusCmd)
}

type deviceStatus struct {
	IP       string `json:"ip"`
	Name     string `json:"name,omitempty"`
	LogFile  string `json:"log_file,omitempty"`
	Rows     int    `json:"rows"`
	LastTime string `json:"last_time,omitempty"`
	LastWatt string `json:"last_power,omitempty"`
}

type statusReport struct {
	Session struct {
		Name string `json:"name"`
		// Running means present and not dead; State carries the raw
		// listing state for present entries, dead ones included.
		Running bool   `json:"running"`
		State   string `json:"state,omitempty"`
		PID     int    `json:"pid,omitempty"`
	} `json:"session"`
	HeartbeatAgeSec *int64         `json:"heartbeat_age_seconds"`
	HeartbeatCmd    string         `json:"heartbeat_command,omitempty"`
	Devices         []deviceStatus `json:"devices"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	dataDir := cfg.DataDir(dir)

	var report statusReport
	report.Session.Name = cfg.Session.Name

	info, found, err := session.Find(session.NewScreen(), cfg.Session.Name)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if found {
		report.Session.Running = !info.State.Dead()
		report.Session.State = string(info.State)
		report.Session.PID = info.PID
	}

	if ka := keepalive.Read(dataDir); ka != nil {
		secs := int64(ka.Age() / time.Second)
		report.HeartbeatAgeSec = &secs
		report.HeartbeatCmd = ka.LastCommand
	}

	for _, d := range cfg.Devices {
		report.Devices = append(report.Devices, readDeviceStatus(dataDir, d.IP))
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printStatus(report)
	return nil
}

func printStatus(r statusReport) {
	switch {
	case r.Session.Running:
		fmt.Printf("%s session %s running (%s, PID %d)\n",
			style.SuccessPrefix, r.Session.Name, r.Session.State, r.Session.PID)
	case r.Session.State != "":
		fmt.Printf("%s session %s is dead, run 'plugwatch wipe'\n",
			style.WarningPrefix, r.Session.Name)
	default:
		fmt.Printf("%s session %s not running\n", style.ErrorPrefix, r.Session.Name)
	}

	if r.HeartbeatAgeSec != nil {
		age := time.Duration(*r.HeartbeatAgeSec) * time.Second
		line := fmt.Sprintf("  Heartbeat:  %s ago (%s)", age, r.HeartbeatCmd)
		// A healthy payload touches the heartbeat every round.
		if age > 2*time.Minute {
			line = style.Yellow.Render(line)
		}
		fmt.Println(line)
	} else {
		fmt.Println(style.Dim.Render("  Heartbeat:  never"))
	}
	fmt.Println()

	table := style.NewTable(
		style.Column{Name: "Device", Width: 18},
		style.Column{Name: "Address", Width: 18},
		style.Column{Name: "Rows", Width: 7, Align: style.AlignRight},
		style.Column{Name: "Last sample", Width: 20},
		style.Column{Name: "Power", Width: 8, Align: style.AlignRight},
	)
	for _, d := range r.Devices {
		name := d.Name
		if name == "" {
			name = style.Dim.Render("no log yet")
		}
		watt := d.LastWatt
		if watt != "" {
			watt += "W"
		}
		table.AddRow(name, d.IP, fmt.Sprintf("%d", d.Rows), d.LastTime, watt)
	}
	fmt.Print(table.Render())
}

// readDeviceStatus summarizes the newest log file for one device address.
func readDeviceStatus(dataDir, ip string) deviceStatus {
	d := deviceStatus{IP: ip}

	path, ok := deviceLog(dataDir, ip)
	if !ok {
		return d
	}
	d.LogFile = filepath.Base(path)
	d.Name = displayName(d.LogFile, ip)

	table, err := csvlog.Read(path)
	if err != nil || len(table.Rows) == 0 {
		return d
	}
	d.Rows = len(table.Rows)

	last := table.Rows[len(table.Rows)-1]
	if i := table.Index("Time"); i >= 0 && i < len(last) {
		d.LastTime = last[i]
	}
	if i := table.Index("Power"); i >= 0 && i < len(last) {
		d.LastWatt = last[i]
	}
	return d
}

// deviceLog finds the log file for an address, newest first when a device
// rename left several behind.
func deviceLog(dataDir, ip string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "*_"+ip+"_log.csv"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Slice(matches, func(i, j int) bool {
		return modTime(matches[i]).After(modTime(matches[j]))
	})
	return matches[0], true
}

func modTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// displayName recovers a readable device name from the log file name.
func displayName(logFile, ip string) string {
	slug := strings.TrimSuffix(logFile, "_"+ip+"_log.csv")
	return cases.Title(language.German).String(strings.ReplaceAll(slug, "_", " "))
}
