package processor

import (
	"context"
	"sort"
	"strings"

	"github.com/sells-group/itr-cli/internal/model"
)

// SearchSubsystems finds subsystems whose id or description contains
// the pattern, case-insensitively. An empty pattern matches all.
// Results are distinct by id and sorted by id.
func (p *Processor) SearchSubsystems(ctx context.Context, pattern string) ([]model.SubsystemMatch, error) {
	ds, err := p.dataset(ctx)
	if err != nil {
		return nil, err
	}
	return searchSubsystems(ds, pattern), nil
}

func searchSubsystems(ds *model.Dataset, pattern string) []model.SubsystemMatch {
	needle := strings.ToLower(strings.TrimSpace(pattern))

	byID := make(map[string]string)
	for _, rec := range ds.Records {
		if _, ok := byID[rec.SubsystemID]; ok {
			continue
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(rec.SubsystemID), needle) ||
			strings.Contains(strings.ToLower(rec.SubsystemDescr), needle) {
			byID[rec.SubsystemID] = rec.SubsystemDescr
		}
	}

	matches := make([]model.SubsystemMatch, 0, len(byID))
	for id, descr := range byID {
		matches = append(matches, model.SubsystemMatch{SubsystemID: id, Description: descr})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].SubsystemID < matches[j].SubsystemID })
	return matches
}

// matchSubsystemIDPrefix returns the distinct subsystem ids starting
// with pattern, case-insensitively, sorted.
func matchSubsystemIDPrefix(ds *model.Dataset, pattern string) []string {
	needle := strings.ToLower(pattern)

	seen := make(map[string]struct{})
	var ids []string
	for _, rec := range ds.Records {
		if _, ok := seen[rec.SubsystemID]; ok {
			continue
		}
		if strings.HasPrefix(strings.ToLower(rec.SubsystemID), needle) {
			seen[rec.SubsystemID] = struct{}{}
			ids = append(ids, rec.SubsystemID)
		}
	}
	sort.Strings(ids)
	return ids
}

// SearchSystems mirrors SearchSubsystems at the system level. Each
// match lists the sorted distinct subsystem ids under the system.
func (p *Processor) SearchSystems(ctx context.Context, pattern string) ([]model.SystemMatch, error) {
	ds, err := p.dataset(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(pattern))

	type systemInfo struct {
		descr      string
		subsystems map[string]struct{}
	}
	byID := make(map[string]*systemInfo)
	for _, rec := range ds.Records {
		info, ok := byID[rec.SystemID]
		if !ok {
			if needle != "" &&
				!strings.Contains(strings.ToLower(rec.SystemID), needle) &&
				!strings.Contains(strings.ToLower(rec.SystemDescr), needle) {
				continue
			}
			info = &systemInfo{descr: rec.SystemDescr, subsystems: map[string]struct{}{}}
			byID[rec.SystemID] = info
		}
		info.subsystems[rec.SubsystemID] = struct{}{}
	}

	matches := make([]model.SystemMatch, 0, len(byID))
	for id, info := range byID {
		subs := make([]string, 0, len(info.subsystems))
		for sub := range info.subsystems {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		matches = append(matches, model.SystemMatch{
			SystemID:     id,
			Description:  info.descr,
			SubsystemIDs: subs,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].SystemID < matches[j].SystemID })
	return matches, nil
}
