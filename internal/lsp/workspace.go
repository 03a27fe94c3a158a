package lsp

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

// settingsSection is the key of the server settings in the client
// configuration:
//
//	{
//	  "as3": {
//	    "maxResults": 500,
//	    "trace": "off",
//	    "sdkPath": "/opt/flex-sdk"
//	  }
//	}
const settingsSection = "as3"

// applySettings updates the server configuration from a settings object
// and reports whether the SDK path changed.
func applySettings(srv *server.Server, settings any) bool {
	if settings == nil {
		return false
	}

	data, err := json.Marshal(settings)
	if err != nil {
		log.Warningf("malformed settings: %s", err)
		return false
	}

	section := gjson.GetBytes(data, settingsSection)
	if !section.IsObject() {
		// Clients that send initializationOptions usually omit the section.
		section = gjson.ParseBytes(data)
	}

	sdkChanged := false

	srv.UpdateConfig(func(cfg *server.Config) {
		if v := section.Get("maxResults"); v.Type == gjson.Number {
			cfg.MaxResults = int(v.Int())
			log.Infof("configuration updated: maxResults = %d", cfg.MaxResults)
		}

		if v := section.Get("trace"); v.Type == gjson.String {
			cfg.Trace = v.String()
			log.Infof("configuration updated: trace = %s", cfg.Trace)
		}

		if v := section.Get("sdkPath"); v.Type == gjson.String && v.String() != cfg.SDKPath {
			cfg.SDKPath = v.String()
			sdkChanged = true
			log.Infof("configuration updated: sdkPath = %s", cfg.SDKPath)
		}
	})

	return sdkChanged
}

func configureFromOptions(srv *server.Server, options any) {
	applySettings(srv, options)
}

// DidChangeConfiguration handles workspace configuration changes from the client.
// A new SDK path reloads the workspace.
func DidChangeConfiguration(context *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	srv, ok := getServer("DidChangeConfiguration")
	if !ok {
		return nil
	}

	if !applySettings(srv, params.Settings) {
		return nil
	}

	ws := srv.Workspace()
	ws.SetSDKPath(srv.Config().SDKPath)

	if ws.Loaded() {
		go loadWorkspace(srv)
	}

	return nil
}

// DidChangeWorkspaceFolders handles changes to workspace folders.
// The workspace is reloaded with the new set of folders.
func DidChangeWorkspaceFolders(context *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	srv, ok := getServer("DidChangeWorkspaceFolders")
	if !ok {
		return nil
	}

	folders := make(map[string]bool)
	for _, f := range srv.GetWorkspaceFolders() {
		folders[f] = true
	}

	for _, folder := range params.Event.Removed {
		log.Infof("workspace folder removed: %s (%s)", folder.Name, folder.URI)
		delete(folders, document.URIToPath(folder.URI))
	}

	for _, folder := range params.Event.Added {
		log.Infof("workspace folder added: %s (%s)", folder.Name, folder.URI)
		folders[document.URIToPath(folder.URI)] = true
	}

	var roots []string
	for f := range folders {
		roots = append(roots, f)
	}

	sort.Strings(roots)
	srv.SetWorkspaceFolders(roots)

	cfg := srv.Config()

	err := srv.Workspace().Configure(server.Options{
		Roots:    srv.GetWorkspaceFolders(),
		SDKPath:  cfg.SDKPath,
		Workers:  cfg.Workers,
		IndexDir: cfg.IndexDir,
	})
	if err != nil {
		log.Errorf("configuring workspace: %s", err)
		return nil
	}

	go loadWorkspace(srv)

	return nil
}
