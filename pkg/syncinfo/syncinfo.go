// Package syncinfo tracks synchronization state: the persisted timestamp of
// the last successful drain and the observable online flag the coordinator
// reacts to.
package syncinfo

import (
	"os"
	"sync"
	"time"
)

// SyncInfo represents data about the last synchronization.
type SyncInfo struct {
	LastSync time.Time // LastSync represents the timestamp of the last synchronization.
}

// SyncManager manages access to and updates of synchronization data.
type SyncManager struct {
	fileMutex sync.RWMutex     // RWMutex to ensure thread safety when working with the file
	syncData  *MutexedSyncInfo // Synchronization data
	filename  string           // File name where synchronization data is stored

	onlineMu sync.Mutex
	online   bool
	subs     []chan bool
}

// MutexedSyncInfo wraps SyncInfo with a mutex for safe access from different threads.
type MutexedSyncInfo struct {
	sync.RWMutex
	SyncInfo SyncInfo // SyncInfo contains synchronization information.
}

// NewSyncManager creates a new SyncManager and initializes a file for storing synchronization data.
func NewSyncManager(fileName string) (*SyncManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	file.Close()

	return &SyncManager{
		syncData: &MutexedSyncInfo{},
		filename: fileName,
	}, nil
}

// UpdateSyncInfo updates synchronization data.
func (sm *SyncManager) UpdateSyncInfo(info SyncInfo) {
	sm.syncData.Lock()
	defer sm.syncData.Unlock()
	sm.syncData.SyncInfo = info
}

// GetSyncInfo returns the current synchronization data.
func (sm *SyncManager) GetSyncInfo() SyncInfo {
	sm.syncData.RLock()
	defer sm.syncData.RUnlock()
	return sm.syncData.SyncInfo
}

// SaveSyncInfoToFile saves synchronization data to a file.
func (sm *SyncManager) SaveSyncInfoToFile() error {
	sm.fileMutex.Lock()
	defer sm.fileMutex.Unlock()

	syncInfo := sm.GetSyncInfo()
	lastSyncStr := syncInfo.LastSync.UTC().Format(time.RFC3339)

	return os.WriteFile(sm.filename, []byte(lastSyncStr), 0644)
}

// LoadSyncInfoFromFile loads synchronization data from a file.
func (sm *SyncManager) LoadSyncInfoFromFile() (time.Time, error) {
	sm.fileMutex.RLock()
	defer sm.fileMutex.RUnlock()

	fileContent, err := os.ReadFile(sm.filename)
	if err != nil {
		return time.Time{}, err
	}

	lastSync, err := time.Parse(time.RFC3339, string(fileContent))
	if err != nil {
		return time.Time{}, err
	}

	return lastSync, nil
}

// UpdateAndSaveSyncInfo updates and saves synchronization data.
func (sm *SyncManager) UpdateAndSaveSyncInfo(info SyncInfo) error {
	sm.UpdateSyncInfo(info)
	return sm.SaveSyncInfoToFile()
}

// Online reports the current connectivity flag.
func (sm *SyncManager) Online() bool {
	sm.onlineMu.Lock()
	defer sm.onlineMu.Unlock()
	return sm.online
}

// SetOnline updates the connectivity flag. Subscribers are notified only
// on a transition, never on a repeated value.
func (sm *SyncManager) SetOnline(online bool) {
	sm.onlineMu.Lock()
	defer sm.onlineMu.Unlock()
	if sm.online == online {
		return
	}
	sm.online = online
	for _, ch := range sm.subs {
		select {
		case ch <- online:
		default: // subscriber has an unread transition pending
		}
	}
}

// Subscribe returns a channel receiving connectivity transitions. The
// channel is buffered; a slow subscriber misses intermediate flips but
// always observes that a transition happened.
func (sm *SyncManager) Subscribe() <-chan bool {
	sm.onlineMu.Lock()
	defer sm.onlineMu.Unlock()
	ch := make(chan bool, 1)
	sm.subs = append(sm.subs, ch)
	return ch
}
