package events

import "github.com/atomicstack/save-cloud/internal/logging"

type BackupTracer struct{}

type SavesTracer struct{}

var (
	Backup = BackupTracer{}
	Saves  = SavesTracer{}
)

func (BackupTracer) Create(src, dst string, err error) {
	logging.Trace("backup.create", withError(map[string]interface{}{"src": src, "dst": dst}, err))
}

func (BackupTracer) AutoBackup(path string, err error) {
	logging.Trace("backup.auto", withError(map[string]interface{}{"path": path}, err))
}

func (BackupTracer) Restore(src, dst string, err error) {
	logging.Trace("backup.restore", withError(map[string]interface{}{"src": src, "dst": dst}, err))
}

func (BackupTracer) Patch(path string, accountID uint64, err error) {
	logging.Trace("backup.patch", withError(map[string]interface{}{"path": path, "account_id": accountID}, err))
}

func (BackupTracer) Cleanup(path string, err error) {
	logging.Trace("backup.cleanup", withError(map[string]interface{}{"path": path}, err))
}

func (SavesTracer) Open(titleID, name string) {
	logging.Trace("saves.open", map[string]interface{}{"title": titleID, "name": name})
}

func (SavesTracer) Close(titleID string) {
	logging.Trace("saves.close", map[string]interface{}{"title": titleID})
}

func (SavesTracer) Tab(tab string) {
	logging.Trace("saves.tab", map[string]interface{}{"tab": tab})
}

func (SavesTracer) Action(tab, action, name string) {
	logging.Trace("saves.action", map[string]interface{}{"tab": tab, "action": action, "name": name})
}

func (SavesTracer) Titles(count int) {
	logging.Trace("saves.titles", map[string]interface{}{"count": count})
}

func withError(payload map[string]interface{}, err error) map[string]interface{} {
	if err != nil {
		payload["error"] = err.Error()
	}
	return payload
}
