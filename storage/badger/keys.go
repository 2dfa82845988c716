package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/quillstone/docbase/core"
)

// Key prefixes for different data types
const (
	collectionPrefix     = "colrec"
	collectionNamePrefix = "colname"
	collectionIDSeq      = "colrecseq"
	documentPrefix       = "docrec"
	documentColPrefix    = "docrecc"
	documentIDSeq        = "docrecseq"
	chunkPrefix          = "chkrec"
	chunkDocPrefix       = "chkrecd"
	chunkIDSeq           = "chkrecseq"
	searchLogPrefix      = "slgrec"
	searchLogDatePrefix  = "slgrecd"
	searchLogIDSeq       = "slgrecseq"
)

// makeCollectionKey generates a key for a collection by ID.
func makeCollectionKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", collectionPrefix, id))
}

// makeCollectionNameKey generates a key for the unique name index.
// Names are stored verbatim; uniqueness is case-sensitive.
func makeCollectionNameKey(name string) []byte {
	return []byte(collectionNamePrefix + ":" + name)
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeDocumentColKey generates a composite key for the collection index.
// Format: prefix:collectionID:documentID
func makeDocumentColKey(collectionID, documentID core.ID) []byte {
	prefix := documentColPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for collectionID + 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(collectionID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makePartialDocumentColKey generates a partial key for scanning all
// documents of a collection.
func makePartialDocumentColKey(collectionID core.ID) []byte {
	prefix := documentColPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(collectionID))
	return buf
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkPrefix, id))
}

// makeChunkDocKey generates a composite key for the document index.
// Format: prefix:documentID:chunkIndex:chunkID
// The chunk index sits before the chunk ID so a prefix scan yields chunks
// in ascending index order.
func makeChunkDocKey(documentID core.ID, chunkIndex int, chunkID core.ID) []byte {
	prefix := chunkDocPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 24 // documentID + chunkIndex + chunkID, 8 bytes each
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkIndex))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialChunkDocKey generates a partial key for scanning all chunks
// of a document.
func makePartialChunkDocKey(documentID core.ID) []byte {
	prefix := chunkDocPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeSearchLogKey generates a key for a search log entry by ID.
func makeSearchLogKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", searchLogPrefix, id))
}

// makeSearchLogDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeSearchLogDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := searchLogDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialSearchLogDateKey generates a partial key for date range queries.
func makePartialSearchLogDateKey(timestamp time.Time) []byte {
	prefix := searchLogDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}
