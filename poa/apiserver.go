/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
)

type PingPost struct {
	Msg   string
	Pings int
}

type PingResponse struct {
	Time       time.Time
	Client     string
	BootTime   time.Time
	Version    string
	ServerHost string
	Daemon     string
	Msg        string
	Pings      int
	Pongs      int
}

type VerifyPost struct {
	Target string
}

type VerifyResponse struct {
	AppName  string
	Time     time.Time
	Target   string
	Result   *VerifyResult
	Msg      string
	Error    bool
	ErrorMsg string
}

type StatusResponse struct {
	AppName  string
	Time     time.Time
	Results  map[string]*VerifyResult
	Error    bool
	ErrorMsg string
}

type CommandPost struct {
	Command string
}

type CommandResponse struct {
	AppName  string
	Time     time.Time
	Status   string
	Msg      string
	Error    bool
	ErrorMsg string
}

var pongs int = 0

func APIping(appName, appVersion string, bootTime time.Time) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {

		tls := ""
		if r.TLS != nil {
			tls = "TLS "
		}

		log.Printf("APIping: received %s/ping request from %s.\n", tls, r.RemoteAddr)

		decoder := json.NewDecoder(r.Body)
		var pp PingPost
		err := decoder.Decode(&pp)
		if err != nil {
			log.Println("APIping: error decoding ping post:", err)
		}
		pongs += 1
		hostname, _ := os.Hostname()
		response := PingResponse{
			Time:       time.Now(),
			BootTime:   bootTime,
			Version:    appVersion,
			Daemon:     appName,
			ServerHost: hostname,
			Client:     r.RemoteAddr,
			Msg:        fmt.Sprintf("%spong from %s @ %s", tls, appName, hostname),
			Pings:      pp.Pings + 1,
			Pongs:      pongs,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// APIverify triggers a fresh verification of one target through the
// engine queue and waits for the outcome.
func APIverify(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var vp VerifyPost
		err := decoder.Decode(&vp)
		if err != nil {
			log.Println("APIverify: error decoding verify post:", err)
		}

		log.Printf("APIverify: received /verify request (target: %s) from %s.\n",
			vp.Target, r.RemoteAddr)

		respCh := make(chan VerifyResponse, 1)
		conf.Internal.VerifyQ <- VerifyRequest{
			Cmd:      "VERIFY",
			Target:   vp.Target,
			Response: respCh,
		}
		resp := <-respCh
		resp.AppName = Globals.App.Name
		resp.Time = time.Now()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// APIstatus reports the most recent result for every target.
func APIstatus(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("APIstatus: received /status request from %s.\n", r.RemoteAddr)

		resp := StatusResponse{
			AppName: Globals.App.Name,
			Time:    time.Now(),
			Results: make(map[string]*VerifyResult),
		}

		for item := range conf.Internal.Results.IterBuffered() {
			resp.Results[item.Key] = item.Val
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func APIcommand(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		stopCh := conf.Internal.APIStopCh

		decoder := json.NewDecoder(r.Body)
		var cp CommandPost
		err := decoder.Decode(&cp)
		if err != nil {
			log.Println("APIcommand: error decoding command post:", err)
		}

		log.Printf("API: received /command request (cmd: %s) from %s.\n",
			cp.Command, r.RemoteAddr)

		resp := CommandResponse{
			Time:    time.Now(),
			AppName: Globals.App.Name,
		}

		switch cp.Command {
		case "status":
			resp.Status = "ok"
			resp.Msg = fmt.Sprintf("%s: %d targets under watch", Globals.App.Name,
				len(conf.Internal.Targets))

		case "stop":
			log.Printf("Daemon instructed to stop\n")
			resp.Status = "stopping"
			resp.Msg = fmt.Sprintf("%s: Daemon was happy, but now winding down", Globals.App.Name)

			go func() {
				// Allow the HTTP response to be sent before triggering shutdown
				time.Sleep(200 * time.Millisecond)
				conf.Internal.StopOnce.Do(func() {
					close(stopCh)
				})
			}()

		default:
			resp.ErrorMsg = fmt.Sprintf("%s: Unknown command: %s", Globals.App.Name, cp.Command)
			resp.Error = true
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func WalkRoutes(router *mux.Router, address string) {
	log.Printf("Defined API endpoints for router on: %s\n", address)

	walker := func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		for m := range methods {
			log.Printf("%-6s %s\n", methods[m], path)
		}
		return nil
	}
	if err := router.Walk(walker); err != nil {
		log.Panicf("Logging err: %s\n", err.Error())
	}
}

func SetupAPIRouter(conf *Config) (*mux.Router, error) {
	r := mux.NewRouter().StrictSlash(true)
	apikey := conf.Apiserver.ApiKey
	if apikey == "" {
		return nil, fmt.Errorf("apiserver.api_key is not set")
	}

	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", apikey).Subrouter()

	sr.HandleFunc("/ping", APIping(Globals.App.Name, Globals.App.Version, Globals.App.ServerBootTime)).Methods("POST")
	sr.HandleFunc("/verify", APIverify(conf)).Methods("POST")
	sr.HandleFunc("/status", APIstatus(conf)).Methods("POST")
	sr.HandleFunc("/command", APIcommand(conf)).Methods("POST")

	return r, nil
}

// APIdispatcher starts one HTTP server per configured address. With
// cert and key files present the servers speak TLS, otherwise plain
// HTTP (the daemon normally only listens on localhost).
func APIdispatcher(conf *Config, router *mux.Router, done <-chan struct{}) error {
	addresses := conf.Apiserver.Addresses
	certFile := conf.Apiserver.CertFile
	keyFile := conf.Apiserver.KeyFile

	if len(addresses) == 0 {
		log.Println("APIdispatcher: no addresses to listen on (key 'apiserver.addresses' not set). Not starting.")
		return fmt.Errorf("no addresses to listen on")
	}

	WalkRoutes(router, addresses[0])
	log.Println("")

	servers := make([]*http.Server, len(addresses))

	for idx, address := range addresses {
		idxCopy := idx
		servers[idx] = &http.Server{
			Addr:    address,
			Handler: router,
		}

		go func(srv *http.Server, idx int) {
			log.Printf("Starting API dispatcher #%d. Listening on '%s'\n", idx, srv.Addr)
			if certFile != "" && keyFile != "" {
				if err := srv.ListenAndServeTLS(certFile, keyFile); err != http.ErrServerClosed {
					log.Fatalf("ListenAndServeTLS(): %v", err)
				}
			} else {
				if err := srv.ListenAndServe(); err != http.ErrServerClosed {
					log.Fatalf("ListenAndServe(): %v", err)
				}
			}
		}(servers[idx], idxCopy)
	}

	go func() {
		<-done
		log.Println("Shutting down API servers...")
		for _, srv := range servers {
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Printf("API server Shutdown: %v", err)
			}
		}
	}()

	return nil
}
