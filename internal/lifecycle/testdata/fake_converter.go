package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

func main() {
	var (
		port       int
		delay      time.Duration
		marker     string
		noMarker   bool
		toStderr   bool
		exitAfter  time.Duration
		exitCode   int
		ignoreTerm bool
		childPID   string
		hold       bool
	)
	flag.IntVar(&port, "port", 0, "listen port")
	flag.DurationVar(&delay, "delay", 0, "wait before printing the marker")
	flag.StringVar(&marker, "marker", "Running on", "readiness marker")
	flag.BoolVar(&noMarker, "no-marker", false, "never print the marker")
	flag.BoolVar(&toStderr, "stderr", false, "print the marker on stderr")
	flag.DurationVar(&exitAfter, "exit-after", 0, "exit on its own after this long")
	flag.IntVar(&exitCode, "exit-code", 0, "exit code used with -exit-after")
	flag.BoolVar(&ignoreTerm, "ignore-term", false, "ignore SIGTERM")
	flag.StringVar(&childPID, "child-pidfile", "", "fork a helper process and write its pid here")
	flag.BoolVar(&hold, "hold", false, "run as a forked helper: no listener, wait for a signal")
	flag.Parse()

	if hold {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT)
		<-sigCh
		return
	}
	if childPID != "" {
		forkHelper(childPID)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("converter"))
	})
	mux.HandleFunc("/api/set-project", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Path string `json:"path"`
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body.Path == "" || body.Name == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "missing path or name"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	fmt.Println(" * Serving Flask app 'app'")
	if !noMarker {
		go func() {
			time.Sleep(delay)
			out := os.Stdout
			if toStderr {
				out = os.Stderr
			}
			fmt.Fprintf(out, " * %s http://%s\n", marker, ln.Addr())
		}()
	}
	if exitAfter > 0 {
		go func() {
			time.Sleep(exitAfter)
			fmt.Fprintln(os.Stderr, "fake converter exiting on its own")
			os.Exit(exitCode)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	if ignoreTerm {
		signal.Ignore(syscall.SIGTERM)
		signal.Notify(sigCh, syscall.SIGINT)
	} else {
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	}
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// forkHelper starts a copy of this binary in -hold mode, like a reloader
// process, and records its pid. The helper keeps the default SIGTERM action.
func forkHelper(pidfile string) {
	cmd := exec.Command(os.Args[0], "-hold")
	if err := cmd.Start(); err != nil {
		log.Fatalf("fork helper: %v", err)
	}
	go func() { _ = cmd.Wait() }()
	tmp := pidfile + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644); err != nil {
		log.Fatalf("write pidfile: %v", err)
	}
	if err := os.Rename(tmp, pidfile); err != nil {
		log.Fatalf("rename pidfile: %v", err)
	}
}
