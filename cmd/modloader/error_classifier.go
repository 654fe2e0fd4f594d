// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"io/fs"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/internal/issue"
	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/pipeline"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

// issueClasses maps error sentinels to issue catalog entries. The first
// match wins.
var issueClasses = []struct {
	target error
	id     issue.Id
}{
	{pipeline.ErrEngineExecution, issue.ScriptExecutionFailedId},
	{modpack.ErrMalformedDependencyString, issue.DependencyStringMalformedId},
	{modpack.ErrInvalidModInfo, issue.ModInfoInvalidId},
	{modpack.ErrIncompatibleMod, issue.ModIncompatibleId},
	{modpack.ErrMissingMod, issue.ModMissingId},
	{modpack.ErrIncorrectModVersion, issue.ModVersionMismatchId},
	{modpack.ErrIncompatibleGameVersion, issue.GameVersionMismatchId},
	{modpack.ErrDependencyCycle, issue.DependencyCycleId},
	{propertytree.ErrVersionMismatch, issue.SettingsVersionMismatchId},
	{propertytree.ErrTruncatedInput, issue.SettingsDecodeFailedId},
	{propertytree.ErrUnknownPropertyType, issue.SettingsDecodeFailedId},
	{propertytree.ErrInvalidStringEncoding, issue.SettingsDecodeFailedId},
	{propertytree.ErrUnsupportedHeaderFlag, issue.SettingsDecodeFailedId},
	{propertytree.ErrNestingTooDeep, issue.SettingsDecodeFailedId},
	{config.ErrInvalidConfig, issue.ConfigLoadFailedId},
	{fs.ErrNotExist, issue.FileNotFoundId},
}

// classifyIssue returns the catalog entry for err, or 0 when none applies.
func classifyIssue(err error) issue.Id {
	for _, class := range issueClasses {
		if errors.Is(err, class.target) {
			return class.id
		}
	}
	return 0
}

// classify wraps err in a ServiceError naming its issue catalog entry.
// Errors that already carry one are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return newServiceError(err, classifyIssue(err), "")
}
