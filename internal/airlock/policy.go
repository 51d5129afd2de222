// Package airlock implements the Tool Policy Table (spec §4.4) and the
// Airlock approval gate (spec §4.5), grounded on the teacher's
// domain/tool.Policy/PolicyEnforcer allow/deny-list + AskMode shape,
// adapted from that configurable policy into the spec's fixed
// three-tier static table.
package airlock

import "github.com/duskcore/agentd/internal/domain/entity"

// Skill identifies which family of tools a tool name belongs to.
type Skill string

const (
	SkillFilesystem Skill = "filesystem"
	SkillBrowser    Skill = "browser"
	SkillShell      Skill = "shell"
	SkillWeb        Skill = "web"
)

// Policy is the {skill, airlock_level} pair the Tool Policy Table
// returns for a known tool name.
type Policy struct {
	Skill Skill
	Level entity.AirlockLevel
}

// table is the single source of truth for Airlock decisions (spec
// §4.4). Unknown tool names have no entry and are denied.
var table = map[string]Policy{
	// Safe: read-only filesystem and git.
	"read_file":           {SkillFilesystem, entity.AirlockSafe},
	"read_many_files":     {SkillFilesystem, entity.AirlockSafe},
	"read_file_chunk":     {SkillFilesystem, entity.AirlockSafe},
	"list_files":          {SkillFilesystem, entity.AirlockSafe},
	"list_files_detailed": {SkillFilesystem, entity.AirlockSafe},
	"file_exists":         {SkillFilesystem, entity.AirlockSafe},
	"get_file_info":       {SkillFilesystem, entity.AirlockSafe},
	"search_files":        {SkillFilesystem, entity.AirlockSafe},
	"git_status":          {SkillShell, entity.AirlockSafe},
	"git_diff":            {SkillShell, entity.AirlockSafe},
	"git_log":             {SkillShell, entity.AirlockSafe},
	"git_show":            {SkillShell, entity.AirlockSafe},
	"git_branch_list":     {SkillShell, entity.AirlockSafe},

	// Safe: read-only web/browser.
	"web_search":         {SkillWeb, entity.AirlockSafe},
	"read_web_page":      {SkillWeb, entity.AirlockSafe},
	"http_get_json":      {SkillWeb, entity.AirlockSafe},
	"http_get_text":      {SkillWeb, entity.AirlockSafe},
	"screenshot":         {SkillBrowser, entity.AirlockSafe},
	"get_page_content":   {SkillBrowser, entity.AirlockSafe},
	"get_page_snapshot":  {SkillBrowser, entity.AirlockSafe},
	"wait_for_selector":  {SkillBrowser, entity.AirlockSafe},
	"extract_links":      {SkillBrowser, entity.AirlockSafe},

	// Sensitive: writes/navigation that notify but auto-approve headless.
	"write_file":  {SkillFilesystem, entity.AirlockSensitive},
	"append_file": {SkillFilesystem, entity.AirlockSensitive},
	"mkdir":       {SkillFilesystem, entity.AirlockSensitive},
	"browse_url":    {SkillBrowser, entity.AirlockSensitive},
	"open_new_tab":  {SkillBrowser, entity.AirlockSensitive},
	"click_element": {SkillBrowser, entity.AirlockSensitive},
	"type_text":     {SkillBrowser, entity.AirlockSensitive},
	"go_back":       {SkillBrowser, entity.AirlockSensitive},

	// Dangerous: explicit approval required outside headless mode.
	"execute_command": {SkillShell, entity.AirlockDangerous},
	"http_post_json":  {SkillWeb, entity.AirlockDangerous},
	"submit_form":     {SkillBrowser, entity.AirlockDangerous},
	"delete_file":     {SkillFilesystem, entity.AirlockDangerous},
	"move_file":       {SkillFilesystem, entity.AirlockDangerous},
}

// Lookup returns the policy for a tool name. The zero Policy (Level
// entity.AirlockNone) is returned, with ok=false, for any name absent
// from the table — callers must treat that as a denial.
func Lookup(toolName string) (Policy, bool) {
	p, ok := table[toolName]
	return p, ok
}

// Level is a convenience wrapper over Lookup returning just the
// airlock level, entity.AirlockNone for unknown tools.
func Level(toolName string) entity.AirlockLevel {
	p, ok := table[toolName]
	if !ok {
		return entity.AirlockNone
	}
	return p.Level
}

// Table returns a copy of the Tool Policy Table, keyed by tool name.
func Table() map[string]Policy {
	out := make(map[string]Policy, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}
