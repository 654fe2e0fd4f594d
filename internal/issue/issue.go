// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FileNotFoundId Id = iota + 1
	ConfigLoadFailedId
	ModInfoInvalidId
	DependencyStringMalformedId
	ModMissingId
	ModIncompatibleId
	ModVersionMismatchId
	GameVersionMismatchId
	DependencyCycleId
	SettingsDecodeFailedId
	SettingsVersionMismatchId
	ScriptExecutionFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation for the mod format involved
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

const (
	infoJSONDocs     HttpLink = "https://wiki.factorio.com/Tutorial:Mod_structure#info.json"
	dataLifecycleDoc HttpLink = "https://lua-api.factorio.com/latest/auxiliary/data-lifecycle.html"
	modSettingsDocs  HttpLink = "https://wiki.factorio.com/Mod_settings_file_format"
	propertyTreeDocs HttpLink = "https://wiki.factorio.com/Property_tree"
)

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id: FileNotFoundId,
		mdMsg: `
# File not found!

A file the loader needs does not exist.

## Things you can try:
- Check ` + "`data_dir`" + ` and ` + "`mods_dir`" + ` with:
~~~
$ modloader config show
~~~
- Point the loader at your game installation:
~~~
$ modloader extract --data-dir /path/to/factorio/data --mods-dir /path/to/factorio/mods
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your configuration file or environment contains an error.

## Things you can try:
- Check the CUE syntax of your config file
- Unset stray ` + "`MODLOADER_*`" + ` environment variables
- Reset to defaults:
~~~
$ modloader config init
~~~`,
	}

	modInfoInvalidIssue = &Issue{
		id: ModInfoInvalidId,
		mdMsg: `
# A mod has an invalid info.json!

Every mod needs an info.json with at least a ` + "`name`" + ` and a dotted ` + "`version`" + `.
Archives must be named ` + "`<name>_<version>.zip`" + ` with the same name and version.

## Things you can try:
- Re-download the mod
- Remove the archive from your mods directory`,
		docLinks: []HttpLink{infoJSONDocs},
	}

	dependencyStringMalformedIssue = &Issue{
		id: DependencyStringMalformedId,
		mdMsg: `
# A dependency declaration could not be parsed!

Dependencies look like ` + "`[prefix] name [operator version]`" + `, where prefix is one of
` + "`!`" + ` (incompatible), ` + "`?`" + ` (optional), ` + "`(?)`" + ` (hidden optional) or ` + "`~`" + ` (no load order effect).

## Examples
~~~
base >= 1.1.0
? bobplates
! angelsrefining
~ flib
~~~`,
		docLinks: []HttpLink{infoJSONDocs},
	}

	modMissingIssue = &Issue{
		id: ModMissingId,
		mdMsg: `
# A required mod is missing!

A mod depends on another mod that is not installed or is disabled in mod-list.json.
Disabled mods count as missing.

## Things you can try:
- Install the missing mod into your mods directory
- Enable it in mod-list.json
- Disable the mod that requires it`,
		docLinks: []HttpLink{infoJSONDocs},
	}

	modIncompatibleIssue = &Issue{
		id: ModIncompatibleId,
		mdMsg: `
# Incompatible mods are installed!

A mod declares that it cannot be used together with another installed mod.
Installed mods conflict even when they are disabled.

## Things you can try:
- Remove one of the two mods from your mods directory`,
		docLinks: []HttpLink{infoJSONDocs},
	}

	modVersionMismatchIssue = &Issue{
		id: ModVersionMismatchId,
		mdMsg: `
# A dependency has the wrong version!

A mod requires a different version of one of its dependencies.

## Things you can try:
- Update the dependency to a version that satisfies the constraint
- Update the dependent mod`,
		docLinks: []HttpLink{infoJSONDocs},
	}

	gameVersionMismatchIssue = &Issue{
		id: GameVersionMismatchId,
		mdMsg: `
# A mod targets a newer game version!

A mod's ` + "`factorio_version`" + ` is newer than the game data being loaded.

## Things you can try:
- Update your game data directory
- Install an older release of the mod
- Pin the game version explicitly:
~~~
$ modloader extract --game-version 1.1.110
~~~`,
		docLinks: []HttpLink{infoJSONDocs},
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Mods require each other in a loop, so no load order exists.

## Things you can try:
- Turn one of the requirements into an optional ` + "`?`" + ` or ` + "`~`" + ` dependency
- Disable one of the mods in the cycle`,
	}

	settingsDecodeFailedIssue = &Issue{
		id: SettingsDecodeFailedId,
		mdMsg: `
# mod-settings.dat could not be decoded!

The settings file is truncated or corrupted.

## Things you can try:
- Start the game once so it rewrites the file
- Delete the file to run with default settings`,
		docLinks: []HttpLink{modSettingsDocs, propertyTreeDocs},
	}

	settingsVersionMismatchIssue = &Issue{
		id: SettingsVersionMismatchId,
		mdMsg: `
# mod-settings.dat was written by another game version!

The version in the settings header does not match the game data.

## Things you can try:
- Start the matching game version once so it rewrites the file
- Accept the drift:
~~~
$ modloader extract --allow-version-drift
~~~`,
		docLinks: []HttpLink{modSettingsDocs},
	}

	scriptExecutionFailedIssue = &Issue{
		id: ScriptExecutionFailedId,
		mdMsg: `
# A mod script failed!

The error above names the stage, the mod and the file. The whole extraction stops at the
first failing script.

## Things you can try:
- Check that every mod the failing mod requires is installed
- Run with ` + "`--log-level debug`" + ` to see each script as it runs
- Disable the failing mod in mod-list.json`,
		docLinks: []HttpLink{dataLifecycleDoc},
	}

	issues = map[Id]*Issue{
		fileNotFoundIssue.Id():              fileNotFoundIssue,
		configLoadFailedIssue.Id():          configLoadFailedIssue,
		modInfoInvalidIssue.Id():            modInfoInvalidIssue,
		dependencyStringMalformedIssue.Id(): dependencyStringMalformedIssue,
		modMissingIssue.Id():                modMissingIssue,
		modIncompatibleIssue.Id():           modIncompatibleIssue,
		modVersionMismatchIssue.Id():        modVersionMismatchIssue,
		gameVersionMismatchIssue.Id():       gameVersionMismatchIssue,
		dependencyCycleIssue.Id():           dependencyCycleIssue,
		settingsDecodeFailedIssue.Id():      settingsDecodeFailedIssue,
		settingsVersionMismatchIssue.Id():   settingsVersionMismatchIssue,
		scriptExecutionFailedIssue.Id():     scriptExecutionFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
